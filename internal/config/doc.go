// Package config loads, normalizes, and validates ytdigest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SILICONFLOW_API_KEY, including values supplied by a .env file in the working
// directory. The Config type centralizes every knob the CLI needs; the
// pipeline package routes each section to the component that consumes it.
package config
