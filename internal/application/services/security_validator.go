package services

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	"github.com/pingcap/tidb/pkg/parser/test_driver" // ValueExpr implementation

	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
)

// queryableTables are the tables ad-hoc analytics may read. Credential and
// session tables are never exposed.
var queryableTables = map[string]bool{
	constants.TableAsset:             true,
	constants.TablePart:              true,
	constants.TableBOMLine:           true,
	constants.TableMeterReading:      true,
	constants.TableIoTDevice:         true,
	constants.TableWorkOrder:         true,
	constants.TableIncident:          true,
	constants.TablePMSchedule:        true,
	constants.TableWorkflowTemplate:  true,
	constants.TableWorkflowStep:      true,
	constants.TableWorkOrderApproval: true,
}

// orgScopedTables carry an organization_id column the validator can filter on
var orgScopedTables = map[string]bool{
	constants.TableAsset:             true,
	constants.TablePart:              true,
	constants.TableBOMLine:           true,
	constants.TableMeterReading:      true,
	constants.TableIoTDevice:         true,
	constants.TableWorkOrder:         true,
	constants.TableIncident:          true,
	constants.TablePMSchedule:        true,
	constants.TableWorkflowTemplate:  true,
	constants.TableWorkflowStep:      true,
	constants.TableWorkOrderApproval: true,
}

// SecurityValidator parses ad-hoc analytics SQL, enforces a SELECT-only
// allowlisted surface, and injects organization scoping into the WHERE
// clause before the query reaches the database.
type SecurityValidator struct {
	parser *parser.Parser
}

// NewSecurityValidator creates a new SecurityValidator
func NewSecurityValidator() *SecurityValidator {
	return &SecurityValidator{parser: parser.New()}
}

// ValidateAndRewrite parses the SQL, validates the tables it touches and
// returns the query with organization scoping injected
func (v *SecurityValidator) ValidateAndRewrite(sql string, session auth.UserSession) (string, error) {
	stmtNodes, _, err := v.parser.Parse(sql, "", "")
	if err != nil {
		return "", errors.NewValidationError("query", fmt.Sprintf("SQL parse error: %v", err))
	}
	if len(stmtNodes) != 1 {
		return "", errors.NewValidationError("query", "Only single SQL statements are allowed")
	}

	selectStmt, ok := stmtNodes[0].(*ast.SelectStmt)
	if !ok {
		return "", errors.NewValidationError("query", "Only SELECT statements are allowed in analytics")
	}

	visitor := &tableAllowlistVisitor{}
	selectStmt.Accept(visitor)
	if visitor.err != nil {
		return "", visitor.err
	}

	// Inject scoping after the visitor pass so the AST is not modified
	// while being walked
	if err := applyOrgScope(selectStmt, session.OrganizationID); err != nil {
		return "", err
	}

	var sb strings.Builder
	restoreCtx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := selectStmt.Restore(restoreCtx); err != nil {
		return "", fmt.Errorf("SQL restore error: %w", err)
	}
	return sb.String(), nil
}

// applyOrgScope injects "AND organization_id = '<orgID>'" for the primary
// table. The org id is a trusted internal UUID, so embedding it as a
// literal does not shift user-supplied parameters.
func applyOrgScope(stmt *ast.SelectStmt, orgID string) error {
	if stmt.From == nil || stmt.From.TableRefs == nil || stmt.From.TableRefs.Left == nil {
		return nil
	}

	// A JOIN parses as a join node with both sides populated; a single
	// table leaves Right nil. Scoping one side of a join would leave the
	// other side unfiltered, so joins are rejected outright.
	if stmt.From.TableRefs.Right != nil {
		return errors.NewValidationError("query", "Joined queries are not supported in analytics")
	}

	ts, ok := stmt.From.TableRefs.Left.(*ast.TableSource)
	if !ok {
		return errors.NewValidationError("query", "Joined queries are not supported in analytics")
	}
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return errors.NewValidationError("query", "Subquery sources are not supported in analytics")
	}
	if !orgScopedTables[tn.Name.O] {
		return nil
	}

	colExpr := &ast.ColumnNameExpr{Name: &ast.ColumnName{Name: ast.NewCIStr(constants.FieldOrganizationID)}}
	orgExpr := &test_driver.ValueExpr{}
	orgExpr.SetString(orgID)

	cond := &ast.BinaryOperationExpr{Op: opcode.EQ, L: colExpr, R: orgExpr}
	if stmt.Where == nil {
		stmt.Where = cond
	} else {
		stmt.Where = &ast.BinaryOperationExpr{Op: opcode.LogicAnd, L: stmt.Where, R: cond}
	}
	return nil
}

type tableAllowlistVisitor struct {
	err error
}

func (v *tableAllowlistVisitor) Enter(in ast.Node) (ast.Node, bool) {
	if v.err != nil {
		return in, true
	}
	if t, ok := in.(*ast.TableName); ok {
		name := t.Name.O
		if name != "" && !queryableTables[name] {
			v.err = errors.NewPermissionError("read", name)
			return in, true
		}
	}
	return in, false
}

func (v *tableAllowlistVisitor) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}
