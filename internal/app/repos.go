package app

import (
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type Repos struct {
	Citizen           repos.CitizenRepo
	FamilyRelation    repos.FamilyRelationRepo
	Expediente        repos.ExpedienteRepo
	Legajo            repos.LegajoRepo
	ErrorRow          repos.ErrorRowRepo
	ExpedienteHistory repos.ExpedienteHistoryRepo
	ReviewHistory     repos.ReviewHistoryRepo
	InformePago       repos.InformePagoRepo
	Cupo              repos.CupoRepo
	Reference         repos.ReferenceRepo
	User              repos.UserRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Citizen:           repos.NewCitizenRepo(db, log),
		FamilyRelation:    repos.NewFamilyRelationRepo(db, log),
		Expediente:        repos.NewExpedienteRepo(db, log),
		Legajo:            repos.NewLegajoRepo(db, log),
		ErrorRow:          repos.NewErrorRowRepo(db, log),
		ExpedienteHistory: repos.NewExpedienteHistoryRepo(db, log),
		ReviewHistory:     repos.NewReviewHistoryRepo(db, log),
		InformePago:       repos.NewInformePagoRepo(db, log),
		Cupo:              repos.NewCupoRepo(db, log),
		Reference:         repos.NewReferenceRepo(db, log),
		User:              repos.NewUserRepo(db, log),
	}
}
