package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/kitties/internal/log"
)

type field struct {
	key     string
	value   string
	comment string
}

type section struct {
	name    string
	comment string
	fields  []field
}

func defaultSections(d Config) []section {
	return []section{
		{name: "storage", comment: "Key-value backend", fields: []field{
			{"driver", d.Storage.Driver, "sqlite (default) or memory"},
			{"path", d.Storage.Path, "sqlite database file"},
		}},
		{name: "ledger", comment: "Ledger limits", fields: []field{
			{"max_kitty_id", strconv.FormatUint(uint64(d.Ledger.MaxKittyID), 10), "creates and breeds fail once this many kitties exist"},
		}},
		{name: "chain", comment: "Simulated block host", fields: []field{
			{"genesis_seed", d.Chain.GenesisSeed, "hex; changing it changes every genome"},
			{"block_size", strconv.FormatUint(uint64(d.Chain.BlockSize), 10), "operations per block before the seed rotates"},
		}},
		{name: "processor", comment: "Command processor", fields: []field{
			{"queue_capacity", strconv.Itoa(d.Processor.QueueCapacity), ""},
			{"slow_threshold", d.Processor.SlowThreshold.String(), "warn when a command takes longer"},
		}},
		{name: "cache", comment: "Query cache", fields: []field{
			{"ttl", d.Cache.TTL.String(), "0s disables caching"},
		}},
		{name: "server", comment: "HTTP adapter (kitties serve)", fields: []field{
			{"addr", d.Server.Addr, ""},
			{"shutdown_timeout", d.Server.ShutdownTimeout.String(), ""},
		}},
		{name: "events", comment: "Redis stream sink, enabled when redis_addr is set", fields: []field{
			{"redis_addr", d.Events.RedisAddr, "e.g. localhost:6379"},
			{"redis_stream", d.Events.RedisStream, ""},
			{"redis_max_len", strconv.FormatInt(d.Events.RedisMaxLen, 10), "approximate cap, 0 for unbounded"},
		}},
		{name: "tracing", comment: "Distributed tracing", fields: []field{
			{"enabled", strconv.FormatBool(d.Tracing.Enabled), ""},
			{"exporter", d.Tracing.Exporter, "none, file, stdout or otlp"},
			{"file_path", d.Tracing.FilePath, "defaults to ~/.config/kitties/traces/traces.jsonl"},
			{"otlp_endpoint", d.Tracing.OTLPEndpoint, ""},
			{"sample_rate", strconv.FormatFloat(d.Tracing.SampleRate, 'f', -1, 64), "0.0 to 1.0"},
			{"service_name", d.Tracing.ServiceName, ""},
		}},
		{name: "log", comment: "Debug log (--debug or KITTIES_DEBUG)", fields: []field{
			{"level", d.Log.Level, "debug, info, warn or error"},
		}},
	}
}

func scalar(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	// Let the encoder pick the tag so numbers and bools stay unquoted.
	var probe any
	if err := yaml.Unmarshal([]byte(value), &probe); err == nil {
		if _, isString := probe.(string); !isString && probe != nil {
			return n
		}
	}
	n.Tag = "!!str"
	return n
}

// DefaultConfigTemplate returns the default config as a YAML document with comments.
func DefaultConfigTemplate() (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range defaultSections(Defaults()) {
		body := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range s.fields {
			val := scalar(f.value)
			val.LineComment = f.comment
			body.Content = append(body.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.key}, val)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: s.name, HeadComment: s.comment},
			body,
		)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, HeadComment: "Kitties Configuration", Content: []*yaml.Node{root}}
	return encode(doc)
}

func encode(doc *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return buf.String(), nil
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	tmpl, err := DefaultConfigTemplate()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(tmpl), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

// SetValue sets a dotted key (e.g. "chain.block_size") in the config file,
// creating the file and intermediate sections as needed. Comments elsewhere
// in the file are preserved.
func SetValue(configPath, key, value string) error {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("invalid config key %q", key)
		}
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: user-selected config path
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config root must be a mapping")
	}

	node := doc.Content[0]
	for i, p := range parts {
		last := i == len(parts)-1
		child := lookup(node, p)
		switch {
		case child == nil && last:
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: p}, scalar(value))
		case child == nil:
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: p}, child)
			node = child
		case last:
			if child.Kind != yaml.ScalarNode {
				return fmt.Errorf("config key %q is a section, not a value", key)
			}
			repl := scalar(value)
			child.Value, child.Tag, child.Style = repl.Value, repl.Tag, 0
		default:
			if child.Kind != yaml.MappingNode {
				return fmt.Errorf("config key %q is not a section", strings.Join(parts[:i+1], "."))
			}
			node = child
		}
	}

	out, err := encode(&doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(out), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	log.Info(log.CatConfig, "Updated config", "path", configPath, "key", key)
	return nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
