// Package notify delivers thumbnail completion messages to the queue chosen
// by a static routing table.
package notify

import (
	"fmt"
	"strings"
)

type Transport string

const (
	TransportSQS   Transport = "sqs"
	TransportNATS  Transport = "nats"
	TransportKafka Transport = "kafka"
)

type Format string

const (
	// FormatFlat sends the message JSON as is.
	FormatFlat Format = "flat"
	// FormatTask wraps it in a task envelope for task-queue workers.
	FormatTask Format = "task"
)

// Route binds a source key prefix to a destination and its payload format.
type Route struct {
	Name      string
	Prefix    string
	Transport Transport
	// Address is the queue URL (sqs), subject (nats) or topic (kafka).
	Address string
	Format  Format
}

func (r Route) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("route has no name")
	}
	if r.Prefix == "" {
		return fmt.Errorf("route %s: empty prefix", r.Name)
	}
	switch r.Transport {
	case TransportSQS, TransportNATS, TransportKafka:
	default:
		return fmt.Errorf("route %s: unknown transport %q", r.Name, r.Transport)
	}
	if r.Address == "" {
		return fmt.Errorf("route %s: empty address", r.Name)
	}
	switch r.Format {
	case FormatFlat, FormatTask:
	default:
		return fmt.Errorf("route %s: unknown format %q", r.Name, r.Format)
	}
	return nil
}

// RouteTable is a closed, ordered list of routes.
type RouteTable []Route

// Resolve returns the first route whose prefix starts key. Matching is case
// sensitive.
func (t RouteTable) Resolve(key string) (Route, bool) {
	for _, r := range t {
		if strings.HasPrefix(key, r.Prefix) {
			return r, true
		}
	}
	return Route{}, false
}

func (t RouteTable) Validate() error {
	names := make(map[string]struct{}, len(t))
	for _, r := range t {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := names[r.Name]; dup {
			return fmt.Errorf("duplicate route name %s", r.Name)
		}
		names[r.Name] = struct{}{}
	}
	return nil
}

// Transports lists the distinct transports the table uses.
func (t RouteTable) Transports() []Transport {
	seen := make(map[Transport]struct{})
	var out []Transport
	for _, r := range t {
		if _, ok := seen[r.Transport]; ok {
			continue
		}
		seen[r.Transport] = struct{}{}
		out = append(out, r.Transport)
	}
	return out
}

const (
	DefaultDevPrefix   = "dev"
	DefaultDevQueueURL = "https://sqs.us-east-1.amazonaws.com/000000000000/media-img-thumbnail-dev"
)

// DefaultRoutes sends keys under the development prefix to the dev queue and
// everything else nowhere.
func DefaultRoutes(devQueueURL string) RouteTable {
	if devQueueURL == "" {
		devQueueURL = DefaultDevQueueURL
	}
	return RouteTable{{
		Name:      "dev",
		Prefix:    DefaultDevPrefix,
		Transport: TransportSQS,
		Address:   devQueueURL,
		Format:    FormatFlat,
	}}
}

// ParseRoutes reads routes written as
// "name|prefix|transport|address|format" joined by ";".
func ParseRoutes(s string) (RouteTable, error) {
	var table RouteTable
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) != 5 {
			return nil, fmt.Errorf("invalid route '%s', expected 'name|prefix|transport|address|format'", entry)
		}
		r := Route{
			Name:      strings.TrimSpace(parts[0]),
			Prefix:    parts[1],
			Transport: Transport(strings.ToLower(strings.TrimSpace(parts[2]))),
			Address:   strings.TrimSpace(parts[3]),
			Format:    Format(strings.ToLower(strings.TrimSpace(parts[4]))),
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		table = append(table, r)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
