package postgres

import (
	"database/sql"
	"testing"

	"mvam/domain/survey"

	"github.com/stretchr/testify/assert"
)

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, `"png_round6"`, QuoteTable("png_round6"))
	assert.Equal(t, `"mvam"."png_round6"`, QuoteTable("mvam.png_round6"))
	assert.Equal(t, `"odd""name"`, QuoteTable(`odd"name`))
}

func TestCountStatement(t *testing.T) {
	assert.Equal(t, `SELECT COUNT(*) FROM "mvam"."clean"`, CountStatement("mvam.clean"))
}

func TestCreateTableStatement(t *testing.T) {
	got := CreateTableStatement("png_round6", []string{"RESPId", "HHIllType_chsickness12"})
	assert.Equal(t, `CREATE TABLE "png_round6" ("RESPId" TEXT, "HHIllType_chsickness12" TEXT)`, got)
}

func TestInsertStatement(t *testing.T) {
	got := InsertStatement("png_round6", []string{"RESPId", "ADMIN1Name", "CMFood"})
	assert.Equal(t, `INSERT INTO "png_round6" ("RESPId", "ADMIN1Name", "CMFood") VALUES ($1, $2, $3)`, got)
}

func TestRowArgsMapsEmptyToNull(t *testing.T) {
	args := RowArgs([]string{"RESPId", "ADMIN3Name"}, survey.Row{"RESPId": "10", "ADMIN3Name": ""})

	assert.Equal(t, []interface{}{
		sql.NullString{String: "10", Valid: true},
		sql.NullString{},
	}, args)
}
