package seeders

import (
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

// UserSeeder creates demo client and provider accounts for local development
type UserSeeder struct {
	db *gorm.DB
}

// NewUserSeeder creates a new user seeder
func NewUserSeeder(db *gorm.DB) *UserSeeder {
	return &UserSeeder{db: db}
}

// SeedDemoUsers creates one demo client and one demo provider
func (s *UserSeeder) SeedDemoUsers() error {
	demoUsers := []struct {
		email    string
		username string
		role     string
	}{
		{"client@drinktea.app", "demo_client", shared.RoleClient},
		{"provider@drinktea.app", "demo_provider", shared.RoleProvider},
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	for _, du := range demoUsers {
		var existing model.User
		if err := s.db.Where("username = ?", du.username).First(&existing).Error; err == nil {
			log.Printf("User %s already exists, skipping", du.username)
			continue
		}

		id, _ := uuid.NewV7()
		user := model.User{
			ID:        id.String(),
			Email:     du.email,
			Username:  du.username,
			Password:  string(hashedPassword),
			Role:      du.role,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.Create(&user).Error; err != nil {
			log.Printf("Error creating user %s: %v", du.username, err)
			return err
		}

		log.Printf("Created %s user: %s", du.role, du.email)
	}

	return nil
}
