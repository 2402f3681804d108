package main

import (
	"fitgate/internal/infra/persistence/model"

	"gorm.io/gen"
)

func main() {
	models := []any{
		model.IdentityModel{},
		model.SessionModel{},
		model.CredentialModel{},
	}

	gen := gen.NewGenerator(gen.Config{
		OutPath: "./internal/infra/persistence/postgres/query",
	})

	gen.ApplyBasic(models...)

	gen.Execute()
}
