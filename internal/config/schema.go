// Package config provides configuration parsing and validation for the
// inspection server.
package config

import (
	"encoding/json"
	"time"
)

// Config is the root configuration for a sink server.
//
// Example YAML:
//
//	listen:
//	  addr: ":8083"
//	capture:
//	  size: 200
//	  bodyLimit: 1048576
//	response:
//	  status: 200
//	routes:
//	  - prefix: /push
//	    response:
//	      status: 201
//	    schema: |
//	      {"type": "object", "required": ["endpoint"]}
type Config struct {
	// Listen contains the network settings for the server
	Listen ListenConfig `json:"listen,omitempty" yaml:"listen,omitempty"`

	// Capture controls how received requests are recorded
	Capture CaptureConfig `json:"capture,omitempty" yaml:"capture,omitempty"`

	// Response is the default response sent for inspected requests
	Response ResponseConfig `json:"response,omitempty" yaml:"response,omitempty"`

	// Routes override the default response for matching path prefixes.
	// The longest matching prefix wins.
	Routes []RouteConfig `json:"routes,omitempty" yaml:"routes,omitempty"`

	// DisableControl turns off the /_sink/ control endpoints
	DisableControl bool `json:"disableControl,omitempty" yaml:"disableControl,omitempty"`
}

// ListenConfig contains the network settings for the server.
type ListenConfig struct {
	// Addr is the listen address (default ":8083")
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// ReadTimeout bounds reading the full request including the body
	ReadTimeout Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`

	// WriteTimeout bounds writing the response
	WriteTimeout Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	// IdleTimeout bounds keep-alive waits
	IdleTimeout Duration `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty"`

	// MaxHeaderBytes limits request header size (default 1 MiB)
	MaxHeaderBytes int `json:"maxHeaderBytes,omitempty" yaml:"maxHeaderBytes,omitempty"`

	// H2C enables serving HTTP/2 over cleartext TCP, for inspecting
	// HTTP/2 clients without TLS
	H2C bool `json:"h2c,omitempty" yaml:"h2c,omitempty"`
}

// CaptureConfig controls how received requests are recorded.
type CaptureConfig struct {
	// Size is the number of requests kept in memory (default 100)
	Size int `json:"size,omitempty" yaml:"size,omitempty"`

	// BodyLimit caps how many body bytes are stored per request
	// (default 1 MiB). Bodies beyond the cap are flagged as truncated.
	BodyLimit int64 `json:"bodyLimit,omitempty" yaml:"bodyLimit,omitempty"`

	// ReadFull drains the entire request body instead of reading exactly
	// Content-Length bytes. Needed for chunked uploads; off by default so
	// a missing Content-Length reads zero bytes.
	ReadFull bool `json:"readFull,omitempty" yaml:"readFull,omitempty"`
}

// ResponseConfig describes the response sent for inspected requests.
type ResponseConfig struct {
	// Status is the HTTP status code to reply with (default 200)
	Status int `json:"status,omitempty" yaml:"status,omitempty"`

	// Delay is an artificial latency applied before responding
	Delay Duration `json:"delay,omitempty" yaml:"delay,omitempty"`

	// Body is a fixed response body
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// Headers are added to the response
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Echo replies with the captured request body, overriding Body
	Echo bool `json:"echo,omitempty" yaml:"echo,omitempty"`
}

// RouteConfig overrides the default response for a path prefix.
type RouteConfig struct {
	// Prefix is the path prefix this route matches (required)
	Prefix string `json:"prefix" yaml:"prefix"`

	// Response overrides the default response for matching requests
	Response ResponseConfig `json:"response,omitempty" yaml:"response,omitempty"`

	// Schema is an inline JSON Schema; request bodies on this route are
	// validated against it and the result recorded on the capture
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Defaults for unset fields.
const (
	DefaultAddr           = ":8083"
	DefaultStatus         = 200
	DefaultCaptureSize    = 100
	DefaultBodyLimit      = 1 << 20
	DefaultMaxHeaderBytes = 1 << 20
)

// Default returns a Config with every field at its default value.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Addr: DefaultAddr,
		},
		Capture: CaptureConfig{
			Size:      DefaultCaptureSize,
			BodyLimit: DefaultBodyLimit,
		},
		Response: ResponseConfig{
			Status: DefaultStatus,
		},
	}
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Listen.Addr == "" {
		c.Listen.Addr = DefaultAddr
	}
	if c.Listen.MaxHeaderBytes == 0 {
		c.Listen.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if c.Capture.Size == 0 {
		c.Capture.Size = DefaultCaptureSize
	}
	if c.Capture.BodyLimit == 0 {
		c.Capture.BodyLimit = DefaultBodyLimit
	}
	if c.Response.Status == 0 {
		c.Response.Status = DefaultStatus
	}
	for i := range c.Routes {
		if c.Routes[i].Response.Status == 0 {
			c.Routes[i].Response.Status = c.Response.Status
		}
	}
}

// Duration is a time.Duration that marshals to and from strings like "30s".
type Duration time.Duration

// GetDuration returns the duration or a default if unset.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
