package registry

import "strings"

// Table layout shared by the loader and both repositories. Column names follow the
// Receita Federal export so stores built by earlier tooling stay servable.
const (
	TableName     = "brazil"
	CompanyIndex  = "company_index"
	OperatorIndex = "operator_index"
	ColumnCount   = 8
)

// Columns lists the table columns in source-file order.
var Columns = []string{
	"nr_cnpj",
	"nm_fantasia",
	"sg_uf",
	"in_cpf_cnpj",
	"nr_cpf_cpnj_socio",
	"cd_qualificacao_socio",
	"ds_qualificacao_socio",
	"nm_socio",
}

// DropTableSQL removes the table together with its indexes.
const DropTableSQL = `DROP TABLE IF EXISTS ` + TableName

// CreateTableSQL is valid for both SQLite and Postgres.
const CreateTableSQL = `CREATE TABLE ` + TableName + ` (
	nr_cnpj               TEXT,
	nm_fantasia           TEXT,
	sg_uf                 TEXT,
	in_cpf_cnpj           INTEGER,
	nr_cpf_cpnj_socio     TEXT,
	cd_qualificacao_socio INTEGER,
	ds_qualificacao_socio TEXT,
	nm_socio              TEXT
)`

// CreateIndexSQL builds the two lookup indexes, company first.
var CreateIndexSQL = []string{
	`CREATE INDEX ` + CompanyIndex + ` ON ` + TableName + ` (nm_fantasia)`,
	`CREATE INDEX ` + OperatorIndex + ` ON ` + TableName + ` (nm_socio)`,
}

// InsertSQL returns the insert statement using placeholder(i) for the i-th (1-based) value.
func InsertSQL(placeholder func(i int) string) string {
	values := make([]string, len(Columns))
	for i := range Columns {
		values[i] = placeholder(i + 1)
	}
	return `INSERT INTO ` + TableName + ` (` + strings.Join(Columns, ", ") + `) VALUES (` + strings.Join(values, ", ") + `)`
}
