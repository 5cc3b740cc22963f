package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// OutputFormat selects the document serializer.
type OutputFormat string

const (
	FormatXML      OutputFormat = "xml"
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatText     OutputFormat = "text"
)

var outputFormats = map[string]OutputFormat{
	"xml":      FormatXML,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"json":     FormatJSON,
	"text":     FormatText,
	"txt":      FormatText,
}

const (
	defaultMaxFileSize        = 10 * 1024 * 1024
	defaultMaxFileTokens      = 20000
	defaultMaxSpreadsheetRows = 500
	defaultTokenizer          = "approx"
)

var defaultEncodings = []string{"utf-8", "utf-16", "windows-1252"}

// Config is the validated, immutable run configuration.
type Config struct {
	// Filtering
	Extensions        []string // whitelist, normalized to lower case without dots
	ExcludeExtensions []string
	IncludePaths      []string
	ExcludePaths      []string
	Ignore            []string // gitignore-syntax rules anchored at the root
	MaxDepth          int
	IncludeHidden     bool
	FollowSymlinks    bool
	NoIgnore          bool
	NoEcosystem       bool
	MaxFileSize       int64

	// Extraction
	MaxFileTokens      int
	MaxTotalTokens     int
	MaxSpreadsheetRows int
	Encodings          []string
	HTMLToMarkdown     bool

	// Tokens
	Tokenizer     string
	Model         string
	TokenizerFile string

	// Output
	Format OutputFormat
	Minify bool

	Threads int
}

// DefaultConfig mirrors the viper defaults registered in main.go.
func DefaultConfig() Config {
	return Config{
		MaxFileSize:        defaultMaxFileSize,
		MaxFileTokens:      defaultMaxFileTokens,
		MaxSpreadsheetRows: defaultMaxSpreadsheetRows,
		Encodings:          append([]string(nil), defaultEncodings...),
		Tokenizer:          defaultTokenizer,
		Format:             FormatXML,
	}
}

// setConfigDefaults registers every key with viper so env and config file
// values resolve even when no flag is bound.
func setConfigDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("extensions", []string{})
	v.SetDefault("exclude_extensions", []string{})
	v.SetDefault("include_paths", []string{})
	v.SetDefault("exclude_paths", []string{})
	v.SetDefault("ignore", []string{})
	v.SetDefault("max_depth", 0)
	v.SetDefault("include_hidden", false)
	v.SetDefault("follow_symlinks", false)
	v.SetDefault("no_ignore", false)
	v.SetDefault("no_ecosystem", false)
	v.SetDefault("max_file_size", d.MaxFileSize)
	v.SetDefault("max_file_tokens", d.MaxFileTokens)
	v.SetDefault("max_total_tokens", 0)
	v.SetDefault("max_spreadsheet_rows", d.MaxSpreadsheetRows)
	v.SetDefault("encodings", d.Encodings)
	v.SetDefault("html_to_markdown", false)
	v.SetDefault("tokenizer", d.Tokenizer)
	v.SetDefault("model", "")
	v.SetDefault("tokenizer_file", "")
	v.SetDefault("format", string(d.Format))
	v.SetDefault("minify", false)
	v.SetDefault("threads", 0)
}

// configFromViper reads the layered settings and validates them.
func configFromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Extensions:         normalizeExtensions(stringList(v, "extensions")),
		ExcludeExtensions:  normalizeExtensions(stringList(v, "exclude_extensions")),
		IncludePaths:       cleanList(stringList(v, "include_paths")),
		ExcludePaths:       cleanList(stringList(v, "exclude_paths")),
		Ignore:             cleanList(v.GetStringSlice("ignore")),
		MaxDepth:           v.GetInt("max_depth"),
		IncludeHidden:      v.GetBool("include_hidden"),
		FollowSymlinks:     v.GetBool("follow_symlinks"),
		NoIgnore:           v.GetBool("no_ignore"),
		NoEcosystem:        v.GetBool("no_ecosystem"),
		MaxFileSize:        v.GetInt64("max_file_size"),
		MaxFileTokens:      v.GetInt("max_file_tokens"),
		MaxTotalTokens:     v.GetInt("max_total_tokens"),
		MaxSpreadsheetRows: v.GetInt("max_spreadsheet_rows"),
		Encodings:          cleanList(stringList(v, "encodings")),
		HTMLToMarkdown:     v.GetBool("html_to_markdown"),
		Tokenizer:          strings.ToLower(strings.TrimSpace(v.GetString("tokenizer"))),
		Model:              v.GetString("model"),
		TokenizerFile:      v.GetString("tokenizer_file"),
		Minify:             v.GetBool("minify"),
		Threads:            v.GetInt("threads"),
	}

	format, ok := outputFormats[strings.ToLower(strings.TrimSpace(v.GetString("format")))]
	if !ok {
		return cfg, &ConfigError{Field: "format", Message: fmt.Sprintf("unknown format %q (want xml, markdown, json or text)", v.GetString("format"))}
	}
	cfg.Format = format

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot honor.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return &ConfigError{Field: "max_depth", Message: "must not be negative"}
	}
	if c.MaxFileSize < 0 {
		return &ConfigError{Field: "max_file_size", Message: "must not be negative"}
	}
	if c.MaxFileTokens < 0 {
		return &ConfigError{Field: "max_file_tokens", Message: "must not be negative"}
	}
	if c.MaxTotalTokens < 0 {
		return &ConfigError{Field: "max_total_tokens", Message: "must not be negative"}
	}
	if c.MaxSpreadsheetRows < 0 {
		return &ConfigError{Field: "max_spreadsheet_rows", Message: "must not be negative"}
	}
	if c.Threads < 0 {
		return &ConfigError{Field: "threads", Message: "must not be negative"}
	}
	switch c.Format {
	case FormatXML, FormatMarkdown, FormatJSON, FormatText:
	default:
		return &ConfigError{Field: "format", Message: fmt.Sprintf("unknown format %q", c.Format)}
	}
	switch c.Tokenizer {
	case "approx", "tiktoken", "huggingface":
	default:
		return &ConfigError{Field: "tokenizer", Message: fmt.Sprintf("unsupported tokenizer %q (want approx, tiktoken or huggingface)", c.Tokenizer)}
	}
	if len(c.Encodings) == 0 {
		return &ConfigError{Field: "encodings", Message: "at least one encoding is required"}
	}
	for _, name := range c.Encodings {
		if _, err := lookupEncoding(name); err != nil {
			return &ConfigError{Field: "encodings", Message: err.Error()}
		}
	}
	return nil
}

// stringList accepts both TOML arrays and comma separated flag/env values.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, strings.Split(item, ",")...)
	}
	return out
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// normalizeExtensions lower-cases and strips leading dots so ".GO" and "go"
// compare equal.
func normalizeExtensions(items []string) []string {
	out := cleanList(items)
	for i, ext := range out {
		out[i] = strings.ToLower(strings.TrimLeft(ext, "."))
	}
	return out
}
