package user

import (
	"errors"
	"testing"

	"chathub/internal/auth"
	. "chathub/pkg/chat"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(&User{}, &Channel{}, &ChannelMember{}, &Invitation{}, &AuditLog{})
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *User {
	hashed, err := auth.HashPassword("originalpassword")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := User{Username: username, Email: username + "@example.com", Password: hashed}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return &user
}

func stringPtr(s string) *string {
	return &s
}

func TestUserService_Update(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	user := createTestUser(t, db, "testuser")
	createTestUser(t, db, "takenname")

	tests := []struct {
		name        string
		userID      string
		req         UpdateRequest
		expectError bool
		errorMsg    string
	}{
		{
			name:   "change username",
			userID: user.ID,
			req:    UpdateRequest{Username: stringPtr("newname")},
		},
		{
			name:        "username already taken",
			userID:      user.ID,
			req:         UpdateRequest{Username: stringPtr("takenname")},
			expectError: true,
			errorMsg:    "username already exists",
		},
		{
			name:   "change password",
			userID: user.ID,
			req:    UpdateRequest{Password: stringPtr("newpassword")},
		},
		{
			name:   "empty update is a no-op",
			userID: user.ID,
			req:    UpdateRequest{},
		},
		{
			name:        "unknown user",
			userID:      "nonexistent",
			req:         UpdateRequest{Username: stringPtr("whatever")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := service.Update(tt.userID, tt.req)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Expected error message '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if tt.req.Username != nil && updated.Username != *tt.req.Username {
				t.Errorf("Expected username '%s', got '%s'", *tt.req.Username, updated.Username)
			}

			if tt.req.Password != nil {
				if updated.Password == *tt.req.Password {
					t.Error("Password should be hashed, not stored in plain text")
				}
				if !auth.CheckPassword(*tt.req.Password, updated.Password) {
					t.Error("New password should verify against the stored hash")
				}
			}
		})
	}
}

func TestUserService_Update_KeepSameUsername(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	user := createTestUser(t, db, "testuser")

	// Re-submitting the current username must not trip the uniqueness check.
	updated, err := service.Update(user.ID, UpdateRequest{Username: stringPtr("testuser")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated.Username != "testuser" {
		t.Errorf("Expected username 'testuser', got '%s'", updated.Username)
	}
}

func TestUserService_Delete(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	user := createTestUser(t, db, "testuser")
	other := createTestUser(t, db, "other")

	channel := Channel{Name: "general", CreatedBy: other.ID}
	if err := db.Create(&channel).Error; err != nil {
		t.Fatalf("Failed to create channel: %v", err)
	}
	memberships := []ChannelMember{
		{ChannelID: channel.ID, UserID: other.ID, Role: RoleAdmin},
		{ChannelID: channel.ID, UserID: user.ID, Role: RoleMember},
	}
	for i := range memberships {
		if err := db.Create(&memberships[i]).Error; err != nil {
			t.Fatalf("Failed to create membership: %v", err)
		}
	}
	invitation := Invitation{ChannelID: channel.ID, InviterID: other.ID, InviteeID: user.ID}
	if err := db.Create(&invitation).Error; err != nil {
		t.Fatalf("Failed to create invitation: %v", err)
	}

	if err := service.Delete(user.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var userCount, memberCount, invitationCount int64
	db.Model(&User{}).Where("id = ?", user.ID).Count(&userCount)
	db.Model(&ChannelMember{}).Where("user_id = ?", user.ID).Count(&memberCount)
	db.Model(&Invitation{}).Where("invitee_id = ?", user.ID).Count(&invitationCount)

	if userCount != 0 {
		t.Error("User row should be deleted")
	}
	if memberCount != 0 {
		t.Error("Memberships should be deleted")
	}
	if invitationCount != 0 {
		t.Error("Invitations should be deleted")
	}

	// The other member is untouched.
	var otherMemberCount int64
	db.Model(&ChannelMember{}).Where("user_id = ?", other.ID).Count(&otherMemberCount)
	if otherMemberCount != 1 {
		t.Errorf("Expected other user's membership to survive, got %d rows", otherMemberCount)
	}

	t.Run("deleting twice", func(t *testing.T) {
		if err := service.Delete(user.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}
