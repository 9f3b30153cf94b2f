package app

import (
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/config"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
	"github.com/minsocial/celiaquia-backend/internal/services"
)

type Services struct {
	CitizenResolver services.CitizenResolver
	FamilyLinker    services.FamilyLinker
	CupoLedger      services.CupoLedger
	ImportEngine    services.ImportEngine
	Renaper         services.RenaperValidator
	Sintys          services.SintysCrossReferencer
	Flow            services.ExpedienteFlow
	Preview         services.PreviewService
	AuditHook       services.AuditHook
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, catalog *types.Catalog, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	hook := services.NewAuditHook(log, clients.Audit)
	resolver := services.NewCitizenResolver(db, log, reposet.Citizen, catalog)
	linker := services.NewFamilyLinker(db, log, reposet.FamilyRelation, reposet.Citizen, reposet.Legajo)
	ledger := services.NewCupoLedger(db, log, reposet.Cupo, reposet.Legajo, hook)
	engine := services.NewImportEngine(db, log, cfg.Programa, catalog, resolver, linker,
		reposet.Citizen, reposet.Expediente, reposet.Legajo, reposet.ErrorRow, reposet.ExpedienteHistory, hook)
	sintys := services.NewSintysCrossReferencer(db, log, catalog, reposet.Legajo, reposet.Citizen, hook)
	flow := services.NewExpedienteFlow(db, log, reposet.Expediente, reposet.Legajo, reposet.Citizen,
		reposet.ErrorRow, reposet.ExpedienteHistory, reposet.ReviewHistory, reposet.InformePago,
		reposet.User, ledger, sintys, hook)

	var validator services.RenaperValidator
	if clients.Renaper != nil {
		validator = services.NewRenaperValidator(db, log, clients.Renaper, catalog,
			reposet.Legajo, reposet.Citizen, reposet.ReviewHistory, reposet.Expediente, ledger, hook)
	}

	return Services{
		CitizenResolver: resolver,
		FamilyLinker:    linker,
		CupoLedger:      ledger,
		ImportEngine:    engine,
		Renaper:         validator,
		Sintys:          sintys,
		Flow:            flow,
		Preview:         services.NewPreviewService(log),
		AuditHook:       hook,
	}
}
