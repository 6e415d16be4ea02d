package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := tokenGenerator{secret: []byte("secret"), timeout: 3 * 24 * time.Hour}

	now := time.Now()
	usr := User{
		ID:        1,
		Name:      "T",
		Email:     "t@test.test",
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := gen.makeToken(usr)
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := gen.makeToken(usr)
	nowFunc = time.Now // reset

	// a token is void once the user logs in again
	relogged := usr
	relogged.LastLogin = now.Add(time.Minute)

	// and once the password changes
	changed := usr
	_ = changed.SetPassword("other-pwd")

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "new login", usr: relogged, token: validToken, wantErr: errInvalidToken},
		{name: "new password", usr: changed, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	uid := EncodeUID(User{ID: 42})
	id, err := decodeUID(uid)
	if err != nil || id != 42 {
		t.Errorf("decodeUID() = %v, %v; want 42, <nil>", id, err)
	}
	if _, err = decodeUID("!!"); err == nil {
		t.Errorf("decodeUID() should fail on garbage")
	}
	if _, err = decodeUID(EncodeUID(User{ID: 0})); err == nil {
		t.Errorf("decodeUID() should fail on zero id")
	}
}
