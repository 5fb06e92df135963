package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	NotifyChanged bool         // true if any notify target or the default changed
	TargetChanges []TargetDiff // per-department diffs
}

// TargetDiff describes what changed for a single department's notification
// target between two configs.
type TargetDiff struct {
	Department string
	NewTarget  string
	Added      bool
	Removed    bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Default notification target
	if old.Notify.DefaultTarget != new.Notify.DefaultTarget {
		d.NotifyChanged = true
	}

	// Detect modified and removed targets.
	for dept, oldTarget := range old.Notify.Targets {
		newTarget, exists := new.Notify.Targets[dept]
		if !exists {
			d.TargetChanges = append(d.TargetChanges, TargetDiff{
				Department: dept,
				Removed:    true,
			})
			d.NotifyChanged = true
			continue
		}
		if newTarget != oldTarget {
			d.TargetChanges = append(d.TargetChanges, TargetDiff{
				Department: dept,
				NewTarget:  newTarget,
			})
			d.NotifyChanged = true
		}
	}

	// Detect added targets.
	for dept, target := range new.Notify.Targets {
		if _, exists := old.Notify.Targets[dept]; !exists {
			d.TargetChanges = append(d.TargetChanges, TargetDiff{
				Department: dept,
				NewTarget:  target,
				Added:      true,
			})
			d.NotifyChanged = true
		}
	}

	return d
}
