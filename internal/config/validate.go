package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Cleanup.TriggerSecret) < 32 {
		return fmt.Errorf("cleanup.trigger_secret must be at least 32 characters (got %d)", len(c.Cleanup.TriggerSecret))
	}
	if c.Cleanup.BatchSize <= 0 {
		return fmt.Errorf("cleanup.batch_size must be > 0 (got %d)", c.Cleanup.BatchSize)
	}
	if c.Cleanup.TriggerRatePerMinute <= 0 {
		return fmt.Errorf("cleanup.trigger_rate_per_minute must be > 0 (got %d)", c.Cleanup.TriggerRatePerMinute)
	}

	if err := c.Drafts.validate(); err != nil {
		return fmt.Errorf("drafts: %w", err)
	}

	return nil
}

func (d *DraftsConfig) validate() error {
	if d.ExpiryDays <= 0 {
		return fmt.Errorf("expiry_days must be > 0 (got %d)", d.ExpiryDays)
	}
	if d.MaxDraftsPerUser <= 0 {
		return fmt.Errorf("max_drafts_per_user must be > 0 (got %d)", d.MaxDraftsPerUser)
	}
	if d.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be > 0 (got %d)", d.MaxBodyBytes)
	}
	if d.MaxMetadataBytes <= 0 {
		return fmt.Errorf("max_metadata_bytes must be > 0 (got %d)", d.MaxMetadataBytes)
	}
	return nil
}
