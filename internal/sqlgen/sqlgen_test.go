package sqlgen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsql/drift/pkg/dialect"
	"github.com/driftsql/drift/pkg/migrate"
	"github.com/driftsql/drift/pkg/schema"
)

func renderStatements(t *testing.T, plan *migrate.Plan, d dialect.Dialect, opts Options) []string {
	t.Helper()
	script, err := Render(plan, d, opts)
	require.NoError(t, err)
	return script.Statements()
}

func TestRender_AddColumn(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.AddColumn{
			Name:   "Pony",
			Column: &schema.Column{Name: "Age", Type: schema.ColumnType{Kind: schema.TypeInt}, Nullable: true},
		},
	}}

	stmts := renderStatements(t, plan, dialect.Generic{}, Options{})
	require.Len(t, stmts, 1)
	assert.Equal(t, `ALTER TABLE "Pony" ADD COLUMN "Age" int;`, stmts[0])
}

func TestRender_AddColumnNotNullWithDefault(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.AddColumn{
			Name: "Pony",
			Column: &schema.Column{
				Name:    "Age",
				Type:    schema.ColumnType{Kind: schema.TypeInt},
				Default: "0",
			},
		},
	}}

	stmts := renderStatements(t, plan, dialect.Generic{}, Options{})
	assert.Equal(t, `ALTER TABLE "Pony" ADD COLUMN "Age" int NOT NULL DEFAULT 0;`, stmts[0])
}

func TestRender_CreateTable(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.CreateTable{TableDef: &schema.Table{
			Name: "Pony",
			Columns: []*schema.Column{
				{Name: "Id", Type: schema.ColumnType{Kind: schema.TypeInt}, Generated: schema.GeneratedIdentity},
				{Name: "Name", Type: schema.ColumnType{Kind: schema.TypeString, Size: 100}},
			},
			PrimaryKey: &schema.Key{Columns: []string{"Id"}},
		}},
	}}

	stmts := renderStatements(t, plan, dialect.Postgres{}, Options{})
	require.Len(t, stmts, 1)
	assert.Equal(t, `CREATE TABLE "Pony" (
    "Id" integer GENERATED BY DEFAULT AS IDENTITY NOT NULL,
    "Name" varchar(100) NOT NULL,
    PRIMARY KEY ("Id")
);`, stmts[0])
}

func TestRender_CreateTableWithNestedIndex(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.CreateTable{TableDef: &schema.Table{
			Name: "Pony",
			Columns: []*schema.Column{
				{Name: "Id", Type: schema.ColumnType{Kind: schema.TypeInt}},
				{Name: "Name", Type: schema.ColumnType{Kind: schema.TypeText}},
			},
			PrimaryKey: &schema.Key{Columns: []string{"Id"}},
			Indexes:    []*schema.Index{{Columns: []string{"Name"}, Unique: true}},
		}},
	}}

	stmts := renderStatements(t, plan, dialect.Postgres{}, Options{})
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE UNIQUE INDEX "ix_Pony_Name" ON "Pony" ("Name");`, stmts[1])
}

func TestRender_CreateTableWithForeignKey(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.CreateTable{TableDef: &schema.Table{
			Name: "Rider",
			Columns: []*schema.Column{
				{Name: "Id", Type: schema.ColumnType{Kind: schema.TypeInt}},
				{Name: "PonyId", Type: schema.ColumnType{Kind: schema.TypeInt}},
			},
			PrimaryKey: &schema.Key{Columns: []string{"Id"}},
			ForeignKeys: []*schema.ForeignKey{{
				Columns:    []string{"PonyId"},
				RefTable:   "Pony",
				RefColumns: []string{"Id"},
				OnDelete:   schema.Cascade,
			}},
		}},
	}}

	stmts := renderStatements(t, plan, dialect.Postgres{}, Options{})
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0],
		`CONSTRAINT "fk_Rider_PonyId" FOREIGN KEY ("PonyId") REFERENCES "Pony" ("Id") ON DELETE CASCADE`)
}

func TestRender_QuotesHostileIdentifiers(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.DropTable{Name: `Pony"; DROP TABLE users; --`},
	}}

	stmts := renderStatements(t, plan, dialect.Generic{}, Options{})
	require.Len(t, stmts, 1)
	assert.Equal(t, `DROP TABLE "Pony""; DROP TABLE users; --";`, stmts[0])
}

func TestRender_SchemaQualifiedReferences(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.DropTable{Schema: "audit", Name: "Log"},
	}}

	stmts := renderStatements(t, plan, dialect.Postgres{}, Options{})
	assert.Equal(t, `DROP TABLE "audit"."Log";`, stmts[0])
}

func TestRender_AlterColumnInPlace(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.AlterColumn{
			Name: "Pony",
			Old:  &schema.Column{Name: "Name", Type: schema.ColumnType{Kind: schema.TypeString, Size: 100}},
			New:  &schema.Column{Name: "Name", Type: schema.ColumnType{Kind: schema.TypeString, Size: 200}, Nullable: true},
		},
	}}

	stmts := renderStatements(t, plan, dialect.Postgres{}, Options{})
	require.Len(t, stmts, 2)
	assert.Equal(t, `ALTER TABLE "Pony" ALTER COLUMN "Name" TYPE varchar(200);`, stmts[0])
	assert.Equal(t, `ALTER TABLE "Pony" ALTER COLUMN "Name" DROP NOT NULL;`, stmts[1])
}

func TestRender_AlterColumnEmulated(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.AlterColumn{
			Name: "Pony",
			Old:  &schema.Column{Name: "Age", Type: schema.ColumnType{Kind: schema.TypeInt}, Nullable: true},
			New:  &schema.Column{Name: "Age", Type: schema.ColumnType{Kind: schema.TypeBigInt}, Nullable: true},
		},
	}}

	stmts := renderStatements(t, plan, dialect.Generic{}, Options{})
	require.Equal(t, []string{
		`ALTER TABLE "Pony" ADD COLUMN "Age__drift_tmp" bigint;`,
		`UPDATE "Pony" SET "Age__drift_tmp" = "Age";`,
		`ALTER TABLE "Pony" DROP COLUMN "Age";`,
		`ALTER TABLE "Pony" RENAME COLUMN "Age__drift_tmp" TO "Age";`,
	}, stmts)
}

func TestRender_AlterColumnEmulatedRejectsNotNullWithoutDefault(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.AlterColumn{
			Name: "Pony",
			Old:  &schema.Column{Name: "Age", Type: schema.ColumnType{Kind: schema.TypeInt}, Nullable: true},
			New:  &schema.Column{Name: "Age", Type: schema.ColumnType{Kind: schema.TypeInt}},
		},
	}}

	_, err := Render(plan, dialect.Generic{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT NULL")
}

func TestRender_GenerationStrategyChangeUnsupported(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.AlterColumn{
			Name: "Pony",
			Old:  &schema.Column{Name: "Id", Type: schema.ColumnType{Kind: schema.TypeInt}},
			New:  &schema.Column{Name: "Id", Type: schema.ColumnType{Kind: schema.TypeInt}, Generated: schema.GeneratedIdentity},
		},
	}}

	_, err := Render(plan, dialect.Postgres{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value-generation strategy")
}

func TestRender_DropUnnamedForeignKeyUnsupported(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.DropForeignKey{Name: "Rider"},
	}}

	_, err := Render(plan, dialect.Postgres{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unnamed foreign key")
}

func TestRender_UserIdentifierOverLimitUnsupported(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.CreateIndex{
			Name: "Pony",
			Index: &schema.Index{
				Name:    strings.Repeat("x", 64),
				Columns: []string{"Name"},
			},
		},
	}}

	_, err := Render(plan, dialect.Postgres{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "63-character limit")
}

func TestRender_GeneratedNameTruncatedToLimit(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.CreateIndex{
			Name: strings.Repeat("t", 40),
			Index: &schema.Index{
				Columns: []string{strings.Repeat("c", 40)},
			},
		},
	}}

	script, err := Render(plan, dialect.Postgres{}, Options{})
	require.NoError(t, err)
	stmts := script.Statements()
	require.Len(t, stmts, 1)

	name := stmts[0][strings.Index(stmts[0], `"ix_`)+1:]
	name = name[:strings.Index(name, `"`)]
	assert.Len(t, name, 63)
}

func TestRender_RefusesDiagnosticsWithoutSignOff(t *testing.T) {
	plan := &migrate.Plan{
		Diagnostics: []migrate.UnsupportedOperation{{
			TableName: "Pony",
			Reason:    "primary key column set changed; recreate the table to apply this change",
		}},
	}

	_, err := Render(plan, dialect.Postgres{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved diagnostics")

	_, err = Render(plan, dialect.Postgres{}, Options{AllowDestructive: true})
	require.NoError(t, err)
}

func TestRender_TransactionalBatching(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.DropTable{Name: "A"},
		migrate.DropTable{Name: "B"},
	}}

	script, err := Render(plan, dialect.Postgres{}, Options{})
	require.NoError(t, err)
	require.Len(t, script.Batches, 1)
	assert.True(t, script.Batches[0].Transactional)
	assert.Len(t, script.Batches[0].Statements, 2)

	script, err = Render(plan, dialect.Generic{}, Options{})
	require.NoError(t, err)
	require.Len(t, script.Batches, 2)
	for _, b := range script.Batches {
		assert.False(t, b.Transactional)
		assert.Len(t, b.Statements, 1)
	}
}

func TestScript_WriteSQL(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.DropTable{Name: "A"},
		migrate.DropTable{Name: "B"},
	}}
	script, err := Render(plan, dialect.Generic{}, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, script.WriteSQL(&buf))
	assert.Equal(t, "DROP TABLE \"A\";\n\nDROP TABLE \"B\";\n\n", buf.String())
}

func TestRender_CreateSequence(t *testing.T) {
	plan := &migrate.Plan{Operations: []migrate.Operation{
		migrate.CreateSequence{Sequence: &schema.Sequence{Name: "pony_numbers", StartWith: 1000, Increment: 10}},
	}}

	stmts := renderStatements(t, plan, dialect.Postgres{}, Options{})
	assert.Equal(t, `CREATE SEQUENCE "pony_numbers" START WITH 1000 INCREMENT BY 10;`, stmts[0])
}
