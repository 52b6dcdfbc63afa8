package tenant

import (
	"reflect"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/infrastructure/logger"
)

// ScopedModel marks a model as tenant-scoped. Models implementing it get
// automatic tenant filtering on reads and tenant stamping on create.
// Global models (users without a tenant, the tenants table itself, the
// outbox) stay untouched.
type ScopedModel interface {
	TenantScoped()
}

// TenantCallback provides GORM callback hooks for automatic tenant filtering
type TenantCallback struct {
	tenantColumn string
	required     bool
}

// NewTenantCallback creates a new tenant callback handler
func NewTenantCallback(tenantColumn string, required bool) *TenantCallback {
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	return &TenantCallback{
		tenantColumn: tenantColumn,
		required:     required,
	}
}

// RegisterCallbacks registers tenant callbacks with GORM
func (tc *TenantCallback) RegisterCallbacks(db *gorm.DB) {
	_ = db.Callback().Query().Before("gorm:query").Register("tenant:before_query", tc.beforeQuery)
	_ = db.Callback().Update().Before("gorm:update").Register("tenant:before_update", tc.beforeUpdate)
	_ = db.Callback().Delete().Before("gorm:delete").Register("tenant:before_delete", tc.beforeDelete)
	_ = db.Callback().Row().Before("gorm:row").Register("tenant:before_row", tc.beforeQuery)
	_ = db.Callback().Create().Before("gorm:create").Register("tenant:before_create", tc.beforeCreate)
}

// beforeQuery adds tenant filter to SELECT queries
func (tc *TenantCallback) beforeQuery(db *gorm.DB) {
	tc.addTenantFilter(db)
}

// beforeUpdate adds tenant filter to UPDATE queries
func (tc *TenantCallback) beforeUpdate(db *gorm.DB) {
	tc.addTenantFilter(db)
}

// beforeDelete adds tenant filter to DELETE queries
func (tc *TenantCallback) beforeDelete(db *gorm.DB) {
	tc.addTenantFilter(db)
}

// beforeCreate stamps the bound tenant onto new tenant-scoped rows.
// Creating a scoped row without a tenant in context fails instead of
// writing an unowned row.
func (tc *TenantCallback) beforeCreate(db *gorm.DB) {
	if db.Statement.Context == nil || db.Statement.Schema == nil {
		return
	}
	if !tc.isScopedModel(db) {
		return
	}

	field := db.Statement.Schema.LookUpField(tc.tenantColumn)
	if field == nil {
		return
	}

	tenantID := logger.GetTenantID(db.Statement.Context)
	if tenantID == "" {
		// A row already stamped by the aggregate constructor passes
		if tc.allRowsStamped(db, field) {
			return
		}
		_ = db.AddError(shared.ErrMissingTenantContext)
		return
	}

	parsed, err := uuid.Parse(tenantID)
	if err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return
	}

	if err := tc.stampRows(db, field, parsed); err != nil {
		_ = db.AddError(err)
	}
}

// stampRows sets tenant_id on every row being created. A row already
// carrying a different tenant than the bound one is rejected, it would
// otherwise write straight into another tenant's data.
func (tc *TenantCallback) stampRows(db *gorm.DB, field *schema.Field, tenantID uuid.UUID) error {
	stamp := func(row reflect.Value) error {
		switch tc.rowTenant(db, field, row) {
		case uuid.Nil:
			_ = field.Set(db.Statement.Context, row, tenantID)
		case tenantID:
		default:
			return ErrTenantMismatch
		}
		return nil
	}

	switch db.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < db.Statement.ReflectValue.Len(); i++ {
			if err := stamp(db.Statement.ReflectValue.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		return stamp(db.Statement.ReflectValue)
	}
	return nil
}

// allRowsStamped reports whether every row being created already carries a
// non-nil tenant id
func (tc *TenantCallback) allRowsStamped(db *gorm.DB, field *schema.Field) bool {
	switch db.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < db.Statement.ReflectValue.Len(); i++ {
			if tc.rowTenant(db, field, db.Statement.ReflectValue.Index(i)) == uuid.Nil {
				return false
			}
		}
		return db.Statement.ReflectValue.Len() > 0
	case reflect.Struct:
		return tc.rowTenant(db, field, db.Statement.ReflectValue) != uuid.Nil
	}
	return false
}

func (tc *TenantCallback) rowTenant(db *gorm.DB, field *schema.Field, row reflect.Value) uuid.UUID {
	value, zero := field.ValueOf(db.Statement.Context, row)
	if zero {
		return uuid.Nil
	}
	if id, ok := value.(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// isScopedModel reports whether the statement targets a tenant-scoped model
func (tc *TenantCallback) isScopedModel(db *gorm.DB) bool {
	if db.Statement.Schema == nil {
		return false
	}
	model := reflect.New(db.Statement.Schema.ModelType).Interface()
	_, ok := model.(ScopedModel)
	return ok
}

// addTenantFilter adds tenant filtering to the query
func (tc *TenantCallback) addTenantFilter(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}

	if db.Statement.Unscoped {
		return
	}

	if !tc.isScopedModel(db) {
		return
	}

	if tc.hasTenantCondition(db) {
		return
	}

	tenantID := logger.GetTenantID(db.Statement.Context)
	if tenantID == "" {
		if tc.required {
			_ = db.AddError(shared.ErrMissingTenantContext)
		}
		return
	}

	if _, err := uuid.Parse(tenantID); err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.tenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// hasTenantCondition checks if tenant_id condition is already present
func (tc *TenantCallback) hasTenantCondition(db *gorm.DB) bool {
	if db.Statement.Unscoped {
		return true
	}

	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if tc.exprContainsTenant(expr) {
					return true
				}
			}
		}
	}

	sql := db.Statement.SQL.String()
	if sql != "" && strings.Contains(sql, tc.tenantColumn) {
		return true
	}

	return false
}

// exprContainsTenant checks if an expression contains tenant_id column
func (tc *TenantCallback) exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.tenantColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.tenantColumn
		}
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}

// EnableAutoTenantFilter enables automatic tenant filtering on a GORM DB instance.
// This registers callbacks that filter reads, updates, and deletes on
// tenant-scoped models and stamp tenant_id on create.
func EnableAutoTenantFilter(db *gorm.DB, required bool) {
	tc := NewTenantCallback("tenant_id", required)
	tc.RegisterCallbacks(db)
}

// DisableAutoTenantFilter removes the tenant callbacks (not recommended in production)
func DisableAutoTenantFilter(db *gorm.DB) {
	_ = db.Callback().Query().Remove("tenant:before_query")
	_ = db.Callback().Update().Remove("tenant:before_update")
	_ = db.Callback().Delete().Remove("tenant:before_delete")
	_ = db.Callback().Row().Remove("tenant:before_row")
	_ = db.Callback().Create().Remove("tenant:before_create")
}
