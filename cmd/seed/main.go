package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/database"
)

// schema holds the DDL for every table the service touches.  Statements are
// idempotent so the seeder can run against a fresh or an existing database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
        id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        name       VARCHAR(255) NOT NULL,
        address    VARCHAR(512) NOT NULL,
        opening    CHAR(5)      NOT NULL,
        closing    CHAR(5)      NOT NULL,
        created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    ) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS restaurant_images (
        id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        restaurant_id BIGINT UNSIGNED NOT NULL,
        url           VARCHAR(1024)   NOT NULL,
        position      INT             NOT NULL DEFAULT 0,
        CONSTRAINT fk_images_restaurant FOREIGN KEY (restaurant_id)
            REFERENCES restaurants(id) ON DELETE CASCADE
    ) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS slot_templates (
        id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        restaurant_id BIGINT UNSIGNED NOT NULL,
        label         VARCHAR(16)     NOT NULL,
        capacity      INT             NOT NULL DEFAULT 0,
        position      INT             NOT NULL DEFAULT 0,
        UNIQUE KEY uq_slot (restaurant_id, label),
        CONSTRAINT fk_slots_restaurant FOREIGN KEY (restaurant_id)
            REFERENCES restaurants(id) ON DELETE CASCADE
    ) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS users (
        id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        email         VARCHAR(255) NOT NULL,
        password_hash VARCHAR(255) NOT NULL,
        full_name     VARCHAR(255) NOT NULL,
        is_active     TINYINT(1)   NOT NULL DEFAULT 1,
        created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        UNIQUE KEY uq_users_email (email)
    ) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
        id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        user_id    BIGINT UNSIGNED NOT NULL,
        token_hash CHAR(64)  NOT NULL,
        expires_at DATETIME  NOT NULL,
        revoked_at DATETIME  NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        UNIQUE KEY uq_refresh_hash (token_hash),
        KEY idx_refresh_user (user_id),
        CONSTRAINT fk_refresh_user FOREIGN KEY (user_id)
            REFERENCES users(id) ON DELETE CASCADE
    ) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS bookings (
        id                CHAR(36)        NOT NULL PRIMARY KEY,
        restaurant_id     BIGINT UNSIGNED NOT NULL,
        booking_date      CHAR(10)        NOT NULL,
        slot_label        VARCHAR(16)     NOT NULL,
        party_size        INT             NOT NULL,
        user_id           BIGINT UNSIGNED NULL,
        guest_name        VARCHAR(255)    NOT NULL DEFAULT '',
        guest_phone       VARCHAR(32)     NOT NULL DEFAULT '',
        status            VARCHAR(16)     NOT NULL,
        client_request_id CHAR(36)        NULL,
        created_at        DATETIME        NOT NULL,
        cancelled_at      DATETIME        NULL,
        UNIQUE KEY uq_bookings_request (client_request_id),
        KEY idx_bookings_slot (restaurant_id, booking_date, slot_label, status),
        KEY idx_bookings_user (user_id),
        CONSTRAINT fk_bookings_restaurant FOREIGN KEY (restaurant_id)
            REFERENCES restaurants(id)
    ) ENGINE=InnoDB`,
}

// seedRestaurant mirrors one entry of the JSON fixture file accepted via
// the -fixture flag.  The built-in fixtures below use the same shape.
type seedRestaurant struct {
	Name    string     `json:"name"`
	Address string     `json:"address"`
	Opening string     `json:"opening"`
	Closing string     `json:"closing"`
	Images  []string   `json:"images"`
	Slots   []seedSlot `json:"slots"`
}

type seedSlot struct {
	Label    string `json:"slot"`
	Capacity int    `json:"capacity"`
}

// dinnerSlots is the default evening template shared by most fixtures.
var dinnerSlots = []seedSlot{
	{"18:00", 4}, {"18:30", 4}, {"19:00", 6}, {"19:30", 6},
	{"20:00", 6}, {"20:30", 4}, {"21:00", 4},
}

var restaurants = []seedRestaurant{
	{
		Name:    "Spice Symphony",
		Address: "12 MG Road, Bengaluru",
		Opening: "12:00",
		Closing: "23:00",
		Images: []string{
			"https://images.example.com/spice-symphony/1.jpg",
			"https://images.example.com/spice-symphony/2.jpg",
			"https://images.example.com/spice-symphony/3.jpg",
		},
		Slots: append([]seedSlot{{"12:00", 6}, {"13:00", 6}, {"14:00", 4}}, dinnerSlots...),
	},
	{
		Name:    "The Olive Courtyard",
		Address: "48 Residency Road, Bengaluru",
		Opening: "17:00",
		Closing: "23:30",
		Images: []string{
			"https://images.example.com/olive-courtyard/1.jpg",
			"https://images.example.com/olive-courtyard/2.jpg",
		},
		Slots: dinnerSlots,
	},
	{
		Name:    "Bay Leaf Bistro",
		Address: "7 Marine Drive, Kochi",
		Opening: "11:30",
		Closing: "22:30",
		Images: []string{
			"https://images.example.com/bay-leaf/1.jpg",
		},
		Slots: []seedSlot{
			{"12:00", 8}, {"13:30", 8}, {"19:00", 8}, {"20:30", 8},
		},
	},
	{
		Name:    "Tandoor Tales",
		Address: "201 Linking Road, Mumbai",
		Opening: "18:00",
		Closing: "23:45",
		Images: []string{
			"https://images.example.com/tandoor-tales/1.jpg",
			"https://images.example.com/tandoor-tales/2.jpg",
		},
		// capacity 0 falls back to DEFAULT_SLOT_CAPACITY at read time
		Slots: []seedSlot{
			{"18:30", 0}, {"19:30", 0}, {"20:30", 0}, {"21:30", 0},
		},
	},
	{
		Name:    "Cafe Verde",
		Address: "3 Park Street, Kolkata",
		Opening: "10:00",
		Closing: "22:00",
		Images: []string{
			"https://images.example.com/cafe-verde/1.jpg",
			"https://images.example.com/cafe-verde/2.jpg",
			"https://images.example.com/cafe-verde/3.jpg",
		},
		Slots: []seedSlot{
			{"12:00", 4}, {"13:00", 4}, {"18:00", 4}, {"19:00", 4}, {"20:00", 4},
		},
	},
}

// loadFixture replaces the built-in restaurants with the contents of a
// JSON file: an array of seedRestaurant objects.
func loadFixture(path string) ([]seedRestaurant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []seedRestaurant
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no restaurants in fixture", path)
	}
	return out, nil
}

func main() {
	fixturePath := flag.String("fixture", "", "path to a JSON restaurant fixture (defaults to the built-in set)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	if *fixturePath != "" {
		loaded, err := loadFixture(*fixturePath)
		if err != nil {
			log.Fatalf("fixture: %v", err)
		}
		restaurants = loaded
		log.Printf("Loaded %d restaurants from %s", len(restaurants), *fixturePath)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	log.Println("Applying schema...")
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("schema failed: %v", err)
		}
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	for _, table := range []string{"bookings", "refresh_tokens", "slot_templates", "restaurant_images", "restaurants", "users"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			log.Fatalf("cleanup %s failed: %v", table, err)
		}
	}

	log.Println("Creating restaurants...")
	for _, r := range restaurants {
		res, err := db.Exec(
			"INSERT INTO restaurants (name, address, opening, closing) VALUES (?,?,?,?)",
			r.Name, r.Address, r.Opening, r.Closing,
		)
		if err != nil {
			log.Fatalf("insert restaurant %q: %v", r.Name, err)
		}
		id, _ := res.LastInsertId()
		for pos, url := range r.Images {
			if _, err := db.Exec(
				"INSERT INTO restaurant_images (restaurant_id, url, position) VALUES (?,?,?)",
				id, url, pos,
			); err != nil {
				log.Fatalf("insert image for %q: %v", r.Name, err)
			}
		}
		for pos, s := range r.Slots {
			if _, err := db.Exec(
				"INSERT INTO slot_templates (restaurant_id, label, capacity, position) VALUES (?,?,?,?)",
				id, s.Label, s.Capacity, pos,
			); err != nil {
				log.Fatalf("insert slot for %q: %v", r.Name, err)
			}
		}
		log.Printf("  %s (%d slots)", r.Name, len(r.Slots))
	}

	log.Println("Creating demo users...")
	demoUsers := []struct {
		email    string
		password string
		fullName string
	}{
		{"asha@example.com", "Asha@123", "Asha Nair"},
		{"rohit@example.com", "Rohit@123", "Rohit Menon"},
	}
	for _, u := range demoUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), cfg.BcryptCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		if _, err := db.Exec(
			"INSERT INTO users (email, password_hash, full_name) VALUES (?,?,?)",
			u.email, string(hash), u.fullName,
		); err != nil {
			log.Fatalf("insert user %s: %v", u.email, err)
		}
		log.Printf("  %s / %s", u.email, u.password)
	}

	logCounts(db)
	log.Println("Seed complete.")
}

func logCounts(db *sql.DB) {
	for _, table := range []string{"restaurants", "restaurant_images", "slot_templates", "users"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err == nil {
			log.Println(fmt.Sprintf("  %-17s %d rows", table, n))
		}
	}
}
