package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Dialect infers the SQL dialect from the connection string.
func (c DatabaseConfig) Dialect() string {
	dsn := strings.ToLower(c.DSNValue())
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"),
		strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return DialectSQLite
	default:
		return DialectMySQL
	}
}

// DSNValue returns the configured DSN, or a MySQL DSN assembled from the parts when only
// a host is given.
func (c DatabaseConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return ""
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.User = strings.TrimSpace(c.User)
	mc.Passwd = c.Password
	mc.DBName = strings.TrimSpace(c.Name)
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range c.Params {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}

// SQLitePath strips the sqlite:// scheme.
func (c DatabaseConfig) SQLitePath() string {
	dsn := c.DSNValue()
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		return dsn[len("sqlite://"):]
	}
	return dsn
}
