package mssql

import (
	"fmt"
	"net/url"

	"github.com/microsoft/go-mssqldb/azuread"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/config"
)

// Authentication methods.
const (
	AuthMethodSQL              = "sql"
	AuthMethodServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	// URL, when set, is a complete sqlserver:// URL and the discrete fields are ignored.
	URL string

	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string

	// AuthMethod is "sql" (default) or "service_principal" for Azure AD.
	AuthMethod   string
	TenantID     string
	ClientID     string
	ClientSecret string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int

	datasource.LoaderOptions
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// DefaultSchema returns the schema scanned when none is configured.
func DefaultSchema() string {
	return "dbo"
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
		Schema:            DefaultSchema(),
		AuthMethod:        AuthMethodSQL,
	}

	opts, err := datasource.OptionsFromMap(config)
	if err != nil {
		return nil, err
	}
	cfg.LoaderOptions = opts

	if schema, ok := config["schema"].(string); ok && schema != "" {
		cfg.Schema = schema
	}

	if u, ok := config["url"].(string); ok && u != "" {
		cfg.URL = u
		return cfg, nil
	}

	if host, ok := config["host"].(string); ok {
		cfg.Host = host
	} else {
		return nil, fmt.Errorf("host is required")
	}

	if port, ok := config["port"].(float64); ok { // JSON numbers are float64
		cfg.Port = int(port)
	} else if port, ok := config["port"].(int); ok {
		cfg.Port = port
	}

	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	} else {
		return nil, fmt.Errorf("database is required")
	}

	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	}
	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	if method, ok := config["auth_method"].(string); ok && method != "" {
		cfg.AuthMethod = method
	}
	switch cfg.AuthMethod {
	case AuthMethodSQL:
	case AuthMethodServicePrincipal:
		cfg.TenantID, _ = config["tenant_id"].(string)
		cfg.ClientID, _ = config["client_id"].(string)
		cfg.ClientSecret, _ = config["client_secret"].(string)
		if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("service_principal auth requires tenant_id, client_id and client_secret")
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unsupported auth_method %q (want sql or service_principal)", cfg.AuthMethod)
	}

	if username, ok := config["username"].(string); ok {
		cfg.Username = username
	} else if user, ok := config["user"].(string); ok {
		cfg.Username = user
	} else {
		return nil, fmt.Errorf("username is required")
	}

	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}

	return cfg, nil
}

// DriverName returns the database/sql driver for the auth method. Azure AD
// service principals go through the azuread driver.
func (c *Config) DriverName() string {
	if c.URL == "" && c.AuthMethod == AuthMethodServicePrincipal {
		return azuread.DriverName
	}
	return "sqlserver"
}

// ConnString returns a sqlserver:// URL for go-mssqldb.
func (c *Config) ConnString() string {
	if c.URL != "" {
		return c.URL
	}

	query := url.Values{}
	query.Add("database", c.Database)
	if c.AuthMethod == AuthMethodServicePrincipal {
		query.Add("fedauth", azuread.ActiveDirectoryServicePrincipal)
		query.Add("user id", c.ClientID+"@"+c.TenantID)
		query.Add("password", c.ClientSecret)
	}
	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	host := fmt.Sprintf("%s:%d", config.ResolveHostForDocker(c.Host), c.Port)
	if c.AuthMethod == AuthMethodServicePrincipal {
		return fmt.Sprintf("sqlserver://%s?%s", host, query.Encode())
	}
	return fmt.Sprintf("sqlserver://%s:%s@%s?%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		host,
		query.Encode(),
	)
}
