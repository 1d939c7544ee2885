package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifyReaderToken(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := verifier.SignReaderToken(42, nil)
		if err != nil {
			t.Fatalf("SignReaderToken() error = %v", err)
		}
		readerID, err := verifier.VerifyReaderToken(token)
		if err != nil {
			t.Fatalf("VerifyReaderToken() error = %v", err)
		}
		if readerID != 42 {
			t.Errorf("VerifyReaderToken() = %v, want 42", readerID)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenVerifier("other-secret")
		token, _ := other.SignReaderToken(42, nil)
		if _, err := verifier.VerifyReaderToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyReaderToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		token, _ := verifier.SignReaderToken(42, jwt.MapClaims{
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		if _, err := verifier.VerifyReaderToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyReaderToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("GarbageToken", func(t *testing.T) {
		if _, err := verifier.VerifyReaderToken("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyReaderToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("NonNumericSubject", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "reader-forty-two"}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if _, err := verifier.VerifyReaderToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyReaderToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("NonPositiveSubject", func(t *testing.T) {
		token, _ := verifier.SignReaderToken(0, nil)
		if _, err := verifier.VerifyReaderToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyReaderToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("MissingSubject", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{}).SignedString([]byte("test-secret"))
		if _, err := verifier.VerifyReaderToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyReaderToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("UnsignedAlgorithmRejected", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		if _, err := verifier.VerifyReaderToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyReaderToken() error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestHashPin(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		hash, err := HashPin("4821")
		if err != nil {
			t.Fatalf("HashPin() error = %v", err)
		}
		if !CheckPin(hash, "4821") {
			t.Error("CheckPin() should accept the original PIN")
		}
		if CheckPin(hash, "4822") {
			t.Error("CheckPin() should reject a different PIN")
		}
	})

	t.Run("TooShort", func(t *testing.T) {
		if _, err := HashPin("123"); err == nil {
			t.Error("HashPin() should reject PINs shorter than 4 characters")
		}
	})

	t.Run("BadHash", func(t *testing.T) {
		if CheckPin("not-a-bcrypt-hash", "4821") {
			t.Error("CheckPin() should reject an invalid stored hash")
		}
	})
}
