package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Transport.LocalPortMin > cfg.Transport.LocalPortMax {
		return fmt.Errorf("transport: local_port_min (%d) exceeds local_port_max (%d)",
			cfg.Transport.LocalPortMin, cfg.Transport.LocalPortMax)
	}

	if !cfg.Server.UsePortmap {
		if cfg.Server.MountPort == 0 {
			return fmt.Errorf("server: mount_port is required when use_portmap is false")
		}
		if cfg.Server.NFSPort == 0 {
			return fmt.Errorf("server: nfs_port is required when use_portmap is false")
		}
	}

	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: burst is required when requests_per_second is set")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
