package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plain password with bcrypt.  A cost outside
// the range bcrypt accepts is clamped rather than surfaced as an
// error, so a misconfigured BCRYPT_COST cannot block account creation.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PasswordMatches reports whether plain matches the stored bcrypt
// hash.
func PasswordMatches(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
