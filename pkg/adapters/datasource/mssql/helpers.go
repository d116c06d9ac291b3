package mssql

import (
	"fmt"
	"strings"
)

// quoteName brackets an identifier the way QUOTENAME() does, escaping ] as ]].
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// buildFullyQualifiedName builds [schema].[table].
func buildFullyQualifiedName(schema, table string) string {
	return fmt.Sprintf("%s.%s", quoteName(schema), quoteName(table))
}

// buildSelectQuery reads every column converted to NVARCHAR so values compare as
// text. TOP applies when limit > 0.
func buildSelectQuery(schema, table string, columns []string, limit int) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if limit > 0 {
		fmt.Fprintf(&sb, "TOP (%d) ", limit)
	}
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "CONVERT(NVARCHAR(MAX), %s) AS %s", quoteName(col), quoteName(col))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(buildFullyQualifiedName(schema, table))
	return sb.String()
}
