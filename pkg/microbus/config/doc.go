// Package config loads the settings of a microbus application.
//
// Settings come from a YAML or JSON file, detected by extension. Keys are
// read leniently: durations may be strings ("250ms") or numbers of
// seconds, and missing or malformed keys keep their default. Loaded
// settings are validated before they are returned.
//
//	settings, err := config.FromFile("simulation.yaml")
//	if err != nil {
//	    return err
//	}
package config
