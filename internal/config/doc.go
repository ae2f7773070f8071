// Package config loads and validates wordreel's configuration: catalog
// location, fetch/transcode/concat/enhance tuning, and the HTTP and logging
// surfaces. Configuration is loaded once at startup into an immutable struct;
// changing it requires a restart.
package config
