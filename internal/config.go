package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/fuma/internal/frontmatter"
)

// REST clients accepted by the build command.
const (
	RestClientBruno = "bruno"
	RestClientPanda = "panda"
	RestClientYaak  = "yaak"
)

var (
	extensionRe   = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)
	componentIDRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Collection CollectionConfig  `yaml:"collection"`
	Compiler   CompilerConfig    `yaml:"compiler"`
	Docs       DocsConfig        `yaml:"docs"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Collection.Validate(); err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	if err := c.Compiler.Validate(); err != nil {
		return fmt.Errorf("compiler: %w", err)
	}
	if err := c.Docs.Validate(); err != nil {
		return fmt.Errorf("docs: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CollectionConfig controls how request collections are bundled.
type CollectionConfig struct {
	Extensions []string `yaml:"extensions"`
	Sort       bool     `yaml:"sort"`
	PruneEmpty bool     `yaml:"prune_empty"`
}

// Validate validates the collection configuration.
func (c *CollectionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Match(extensionRe))),
	)
}

// CompilerConfig holds the MDX compiler settings.
//
// Prefix, when set, must start every component id so that plain HTML tags
// cannot be mistaken for components.
type CompilerConfig struct {
	Frontmatter frontmatter.Policy `yaml:"frontmatter"`
	Prefix      string             `yaml:"prefix"`
	Components  []string           `yaml:"components"`
}

// Validate validates the compiler configuration.
func (c *CompilerConfig) Validate() error {
	if c.Frontmatter == "" {
		c.Frontmatter = frontmatter.Strict
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Frontmatter, validation.In(frontmatter.Strict, frontmatter.Lenient)),
		validation.Field(&c.Prefix, validation.Match(componentIDRe)),
		validation.Field(&c.Components, validation.Each(validation.Match(componentIDRe))),
	); err != nil {
		return err
	}
	for _, id := range c.Components {
		if !strings.HasPrefix(id, c.Prefix) {
			return fmt.Errorf("component %q lacks prefix %q", id, c.Prefix)
		}
	}
	return nil
}

// DocsConfig selects the documents served by ui and mcp.
type DocsConfig struct {
	Extensions []string `yaml:"extensions"`
}

// Validate validates the docs configuration.
func (c *DocsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Match(extensionRe))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Collection: CollectionConfig{
			Extensions: []string{".bru"},
			Sort:       true,
		},
		Compiler: CompilerConfig{
			Frontmatter: frontmatter.Strict,
			Components:  []string{"fs_component"},
		},
		Docs: DocsConfig{
			Extensions: []string{".md", ".mdx"},
		},
	}
}
