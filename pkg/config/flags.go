package config

import "github.com/spackel-lang/spackel/pkg/cli"

// SetupFlagGroups registers -W and -F toggle pairs for every known warning and
// feature. The returned slices are indexed by Warning/Feature so the driver
// can apply explicit overrides after defaults.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.GroupEntry) {
	warnings = make([]cli.GroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings[i] = cli.GroupEntry{
			Name:     info.Name,
			Prefix:   "W",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		}
		*warnings[i].Enabled = false
	}
	features = make([]cli.GroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features[i] = cli.GroupEntry{
			Name:     info.Name,
			Prefix:   "F",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		}
		*features[i].Enabled = false
	}
	fs.AddGroup("Warnings", warnings)
	fs.AddGroup("Features", features)
	return warnings, features
}

// ApplyFlagGroups folds parsed -W/-F toggles back into the config.
func (c *Config) ApplyFlagGroups(warnings, features []cli.GroupEntry) {
	for i, entry := range warnings {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range features {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
