// Package config provides configuration management for the AIUI backend.
//
// Configuration is loaded from environment variables using the env package.
// A .env file in the working directory is picked up by the binary before
// Load runs. Every value has a default, so the service starts with no
// configuration at all and listens on 0.0.0.0:8000.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
