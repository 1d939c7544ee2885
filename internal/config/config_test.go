package config

import "testing"

func TestValidate(t *testing.T) {
	t.Run("EmptyTokenSecret", func(t *testing.T) {
		cfg := &Config{}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should reject an empty token secret")
		}
	})

	t.Run("TokenSecretSet", func(t *testing.T) {
		cfg := &Config{TokenSecret: "s3cret"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})
}
