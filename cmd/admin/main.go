// Package main provides admin management utilities for ShutterHub.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"shutterhub/internal/config"
	"shutterhub/internal/database"
	"shutterhub/internal/models"
	"shutterhub/internal/repository"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin/main.go promote <user_id>     - Promote user to admin")
	fmt.Println("  go run ./cmd/admin/main.go demote <user_id>      - Demote user from admin")
	fmt.Println("  go run ./cmd/admin/main.go list-admins           - List all admins")
	fmt.Println("  go run ./cmd/admin/main.go unsuspend <user_id>   - Lift a suspension and reset warnings")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	command := os.Args[1]

	switch command {
	case "promote":
		promoteToAdmin(ctx, users, requireUserID(command))
	case "demote":
		demoteFromAdmin(ctx, users, requireUserID(command))
	case "list-admins":
		listAdmins(ctx, users)
	case "unsuspend":
		unsuspend(ctx, users, requireUserID(command))
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func requireUserID(command string) uint {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: go run ./cmd/admin/main.go %s <user_id>\n", command)
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || id == 0 {
		fmt.Printf("Invalid user ID: %s\n", os.Args[2])
		os.Exit(1)
	}
	return uint(id)
}

func loadUser(ctx context.Context, users repository.UserRepository, userID uint) (*models.User, string) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %d not found\n", userID)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}
	username := "(no profile)"
	if profile, perr := users.GetProfile(ctx, userID); perr == nil {
		username = profile.Username
	}
	return user, username
}

func promoteToAdmin(ctx context.Context, users repository.UserRepository, userID uint) {
	user, username := loadUser(ctx, users, userID)

	isAdmin, err := users.HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	if user.IsAdmin && isAdmin {
		fmt.Printf("User %s (ID: %d) is already an admin\n", username, user.ID)
		return
	}

	if err := users.SetAdminFlag(ctx, userID, true); err != nil {
		log.Fatalf("Failed to promote user: %v", err)
	}
	if err := users.GrantRole(ctx, userID, models.RoleAdmin); err != nil {
		log.Fatalf("Failed to grant admin role: %v", err)
	}

	fmt.Printf("✅ Successfully promoted %s (ID: %d) to admin\n", username, user.ID)
}

func demoteFromAdmin(ctx context.Context, users repository.UserRepository, userID uint) {
	user, username := loadUser(ctx, users, userID)

	isAdmin, err := users.HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	if !user.IsAdmin && !isAdmin {
		fmt.Printf("User %s (ID: %d) is not an admin\n", username, user.ID)
		return
	}

	if err := users.SetAdminFlag(ctx, userID, false); err != nil {
		log.Fatalf("Failed to demote user: %v", err)
	}
	if err := users.RevokeRole(ctx, userID, models.RoleAdmin); err != nil {
		log.Fatalf("Failed to revoke admin role: %v", err)
	}

	fmt.Printf("✅ Successfully demoted %s (ID: %d) from admin\n", username, user.ID)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	ids, err := users.ListUserIDsWithRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(ids) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	profiles, err := users.GetProfiles(ctx, ids)
	if err != nil {
		log.Fatalf("Failed to fetch admin profiles: %v", err)
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, id := range ids {
		user, err := users.GetByID(ctx, id)
		if err != nil {
			fmt.Printf("ID: %d | (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", id, profiles[id].Username, user.Email)
	}
	fmt.Println("─────────────────────────────────────")
}

func unsuspend(ctx context.Context, users repository.UserRepository, userID uint) {
	user, username := loadUser(ctx, users, userID)

	if err := users.Unsuspend(ctx, userID, true); err != nil {
		log.Fatalf("Failed to lift suspension: %v", err)
	}

	fmt.Printf("✅ Lifted suspension for %s (ID: %d); warnings reset\n", username, user.ID)
}
