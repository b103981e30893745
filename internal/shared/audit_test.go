package shared

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditSchemaCoversRecorderColumns(t *testing.T) {
	// Record and List are written against auditColumns; the shipped DDL must
	// define every one of them.
	for _, col := range strings.Split(auditColumns, ", ") {
		assert.Contains(t, AuditLogsDDL, col+" ", "column %q missing from DDL", col)
	}
}

func TestAuditRecordValidation(t *testing.T) {
	logger := &AuditLogger{}
	ctx := context.Background()

	err := logger.Record(ctx, AuditLog{Entity: "project", RefID: ProjectRef(1)})
	require.Error(t, err)

	err = logger.Record(ctx, AuditLog{Action: "project.create", RefID: ProjectRef(1)})
	require.Error(t, err)

	err = logger.Record(ctx, AuditLog{Action: "project.create", Entity: "project"})
	require.Error(t, err)

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(ctx, AuditLog{}))
	_, err = nilLogger.List(ctx, "project", ProjectRef(1))
	require.Error(t, err)
}

func TestProjectRefStable(t *testing.T) {
	assert.Equal(t, ProjectRef(42), ProjectRef(42))
	assert.NotEqual(t, ProjectRef(42), ProjectRef(43))
	assert.NotEqual(t, uuid.Nil, ProjectRef(42))
}
