package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// APILogin is the user that API-key requests are recorded under.
const APILogin = "api"

// ErrEmptyLogin is returned when a user is looked up without a login.
var ErrEmptyLogin = errors.New("empty login")

// TelegramLogin is the login name for a Telegram user ID.
func TelegramLogin(userID int64) string {
	return "telegram:" + strconv.FormatInt(userID, 10)
}

const upsertUser = `
	INSERT INTO users (login, display_name)
	VALUES ($1, $2)
	ON CONFLICT (login) DO UPDATE
		SET last_seen = NOW(),
		    display_name = COALESCE(NULLIF($2, ''), users.display_name)
	RETURNING id`

// GetOrCreateUser returns the ID of the user with login, creating the row on
// first sight. A non-empty displayName replaces the stored one.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return 0, ErrEmptyLogin
	}
	var id int
	if err := db.Pool.QueryRow(ctx, upsertUser, login, strings.TrimSpace(displayName)).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving user %q: %w", login, err)
	}
	return id, nil
}
