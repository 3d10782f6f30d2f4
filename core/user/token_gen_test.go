package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = 3 * 24 * time.Hour

	now := time.Now()
	active := true
	usr := User{
		ID:        "0d6e1f68-9c3a-4e2b-8f41-7a5d2c9b0e13",
		Name:      "Amina O",
		Username:  "amina",
		Email:     "amina@test.test",
		IsActive:  &active,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("s3cr3t-pwd")

	validToken := makeToken(usr)

	// back-date nowFunc to mint an already-expired token
	nowFunc = func() time.Time { return time.Now().Add(-(passwordResetTimeoutDelta + 24*time.Hour)) }
	expiredToken := makeToken(usr)
	nowFunc = time.Now

	otherUsr := usr
	_ = otherUsr.SetPassword("changed")

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "empty", usr: usr, wantErr: errInvalidToken},
		{name: "no separator", usr: usr, token: "notatoken", wantErr: errInvalidToken},
		{name: "bad base32 day", usr: usr, token: "a1!-whatever", wantErr: errInvalidToken},
		{name: "non-numeric day", usr: usr, token: "NRXWY-whatever", wantErr: errInvalidToken},
		{name: "forged signature", usr: usr, token: "HE4TS-whatever", wantErr: errInvalidToken},
		{name: "password changed", usr: otherUsr, token: validToken, wantErr: errInvalidToken},
		{name: "expired", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
