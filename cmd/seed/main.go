// Command seed loads the starter catalog and the first super admin into a
// postgres database that the server has already migrated.
package main

import (
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type seedService struct {
	Name string
	Jobs []seedJob
}

type seedJob struct {
	Name        string
	Description string
}

var catalog = []seedService{
	{
		Name: "Plumbing",
		Jobs: []seedJob{
			{"Leak repair", "Locate and fix leaking pipes, joints and fittings."},
			{"Faucet installation", "Install or replace kitchen and bathroom faucets."},
			{"Water heater repair", "Diagnose and repair electric and gas water heaters."},
		},
	},
	{
		Name: "Electrical",
		Jobs: []seedJob{
			{"Panel repair", "Inspect and repair distribution panels and breakers."},
			{"Lighting installation", "Install indoor and outdoor light fixtures."},
		},
	},
	{
		Name: "Painting",
		Jobs: []seedJob{
			{"Interior painting", "Prepare and paint interior walls and ceilings."},
			{"Exterior painting", "Prepare and paint facades and outdoor surfaces."},
		},
	},
	{
		Name: "Air Conditioning",
		Jobs: []seedJob{
			{"AC installation", "Install split and window air conditioning units."},
			{"AC maintenance", "Clean filters and check refrigerant levels."},
		},
	},
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}
	log.Println("✅ Successfully connected to database")

	tx, err := db.Begin()
	if err != nil {
		log.Fatal("Failed to start transaction:", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	jobs := 0
	for _, svc := range catalog {
		serviceID, err := upsertService(tx, svc.Name, now)
		if err != nil {
			log.Fatalf("❌ Failed to seed service %s: %v", svc.Name, err)
		}
		for _, job := range svc.Jobs {
			jobID, err := upsertJob(tx, job, now)
			if err != nil {
				log.Fatalf("❌ Failed to seed job %s: %v", job.Name, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO service_jobs (service_id, job_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				serviceID, jobID,
			); err != nil {
				log.Fatalf("❌ Failed to link job %s: %v", job.Name, err)
			}
			jobs++
		}
	}

	if err := seedAdmin(tx, now); err != nil {
		log.Fatal("❌ Failed to seed super admin: ", err)
	}

	if err := tx.Commit(); err != nil {
		log.Fatal("Failed to commit seed data:", err)
	}
	log.Printf("✅ Seeded %d services and %d jobs", len(catalog), jobs)
}

func upsertService(tx *sql.Tx, name string, now time.Time) (uint, error) {
	if _, err := tx.Exec(
		`INSERT INTO services (service_name, created_at, updated_at) VALUES ($1, $2, $2) ON CONFLICT (service_name) DO NOTHING`,
		name, now,
	); err != nil {
		return 0, err
	}
	var id uint
	err := tx.QueryRow(`SELECT id FROM services WHERE service_name = $1`, name).Scan(&id)
	return id, err
}

// upsertJob reuses a job with the same name. Job names carry no unique index.
func upsertJob(tx *sql.Tx, job seedJob, now time.Time) (uint, error) {
	var id uint
	err := tx.QueryRow(`SELECT id FROM jobs WHERE job_name = $1 ORDER BY id LIMIT 1`, job.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	err = tx.QueryRow(
		`INSERT INTO jobs (job_name, job_description, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		job.Name, job.Description, now,
	).Scan(&id)
	return id, err
}

func seedAdmin(tx *sql.Tx, now time.Time) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL")))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("⚠️  SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set. Skipping super admin.")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	res, err := tx.Exec(
		`INSERT INTO users (name, email, password_hash, role, total_ratings, average_rating, created_at, updated_at)
		 VALUES ($1, $2, $3, 'super_admin', 0, 0, $4, $4) ON CONFLICT (email) DO NOTHING`,
		getEnv("SEED_ADMIN_NAME", "Administrator"), email, string(hash), now,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Printf("⚠️  User %s already exists. Skipping super admin.", email)
		return nil
	}
	log.Printf("✅ Super admin %s created", email)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
