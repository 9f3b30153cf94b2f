package services

import (
	"context"
	"io"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/normalization"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
	"github.com/minsocial/celiaquia-backend/internal/sheet"
)

// sintysHeaders is the fixed nominal-roster layout the external office
// expects. Do not reorder.
var sintysHeaders = []string{
	"Documento", "Apellido", "Nombre", "Fecha Nacimiento", "Sexo", "Provincia",
}

// SintysSummary is the outcome of one cross-reference ingest.
type SintysSummary struct {
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

type SintysCrossReferencer interface {
	// Export renders the expediente's nominal roster as a spreadsheet.
	Export(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]byte, error)
	// Ingest reads the returned file and marks each legajo MATCH or
	// NO_MATCH, keyed by document. Re-ingesting the same file is a no-op.
	Ingest(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, spreadsheet io.Reader, userID uuid.UUID) (*SintysSummary, error)
}

type sintysCrossReferencer struct {
	db          *gorm.DB
	log         *logger.Logger
	catalog     *types.Catalog
	legajoRepo  repos.LegajoRepo
	citizenRepo repos.CitizenRepo
	hook        AuditHook
}

func NewSintysCrossReferencer(db *gorm.DB, baseLog *logger.Logger, catalog *types.Catalog, legajoRepo repos.LegajoRepo, citizenRepo repos.CitizenRepo, hook AuditHook) SintysCrossReferencer {
	return &sintysCrossReferencer{
		db:          db,
		log:         baseLog.With("service", "SintysCrossReferencer"),
		catalog:     catalog,
		legajoRepo:  legajoRepo,
		citizenRepo: citizenRepo,
		hook:        hook,
	}
}

func (s *sintysCrossReferencer) Export(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]byte, error) {
	legajos, err := s.legajoRepo.ListByExpediente(ctx, tx, expedienteID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(legajos))
	for _, l := range legajos {
		ids = append(ids, l.CitizenID)
	}
	citizens, err := s.citizenRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Citizen, len(citizens))
	for _, c := range citizens {
		byID[c.ID] = c
	}

	rows := make([][]interface{}, 0, len(legajos))
	for _, l := range legajos {
		c := byID[l.CitizenID]
		if c == nil {
			continue
		}
		var birth, sexo, province string
		if c.BirthDate != nil {
			birth = c.BirthDate.Format("2006-01-02")
		}
		if c.SexID != nil {
			if sx, ok := s.catalog.SexByID(*c.SexID); ok {
				sexo = sx.RenaperCode
			}
		}
		if c.ProvinceID != nil {
			if p, ok := s.catalog.ProvinceByID(*c.ProvinceID); ok {
				province = p.Name
			}
		}
		rows = append(rows, []interface{}{
			strconv.FormatInt(c.DocumentNumber, 10),
			c.Surname, c.GivenName, birth, sexo, province,
		})
	}
	return sheet.Write("Cruce", sintysHeaders, rows)
}

func (s *sintysCrossReferencer) Ingest(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, spreadsheet io.Reader, userID uuid.UUID) (*SintysSummary, error) {
	rows, err := sheet.Parse(spreadsheet)
	if err != nil {
		return nil, err
	}
	matched := map[int64]bool{}
	for _, row := range rows {
		digits := normalization.DigitsOnly(row.Get(sheet.FieldDocument))
		doc, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			continue
		}
		// An 11-digit CUIT matches the DNI it embeds.
		if len(digits) == 11 {
			if dni, err := strconv.ParseInt(digits[2:10], 10, 64); err == nil {
				matched[dni] = true
			}
		}
		matched[doc] = true
	}

	legajos, err := s.legajoRepo.ListByExpediente(ctx, tx, expedienteID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(legajos))
	for _, l := range legajos {
		ids = append(ids, l.CitizenID)
	}
	citizens, err := s.citizenRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	docByCitizen := make(map[uuid.UUID]int64, len(citizens))
	for _, c := range citizens {
		docByCitizen[c.ID] = c.DocumentNumber
	}

	summary := &SintysSummary{}
	for _, l := range legajos {
		result := types.SintysNoMatch
		if matched[docByCitizen[l.CitizenID]] {
			result = types.SintysMatch
		}
		if result == types.SintysMatch {
			summary.Matched++
		} else {
			summary.Unmatched++
		}
		if l.SintysResult == result {
			continue
		}
		fields := map[string]interface{}{"sintys_result": result}
		if l.CupoState == types.CupoDentro {
			fields["is_active_titular"] = result == types.SintysMatch && l.TechReview == types.ReviewAprobado
		}
		if err := s.legajoRepo.UpdateFields(ctx, tx, l.ID, fields); err != nil {
			return nil, err
		}
		s.hook.LegajoSintys(ctx, l.ID, l.SintysResult, result, userID)
	}
	s.log.Info("sintys ingest",
		"expediente_id", expedienteID,
		"matched", summary.Matched,
		"unmatched", summary.Unmatched,
	)
	return summary, nil
}
