package repos

import (
	"github.com/minsocial/celiaquia-backend/internal/data/repos/citizen"
	"github.com/minsocial/celiaquia-backend/internal/data/repos/cupo"
	"github.com/minsocial/celiaquia-backend/internal/data/repos/expediente"
	"github.com/minsocial/celiaquia-backend/internal/data/repos/reference"
	"github.com/minsocial/celiaquia-backend/internal/data/repos/user"
)

type CitizenRepo = citizen.CitizenRepo
type FamilyRelationRepo = citizen.FamilyRelationRepo

type ExpedienteRepo = expediente.ExpedienteRepo
type LegajoRepo = expediente.LegajoRepo
type ErrorRowRepo = expediente.ErrorRowRepo
type ExpedienteHistoryRepo = expediente.ExpedienteHistoryRepo
type ReviewHistoryRepo = expediente.ReviewHistoryRepo
type InformePagoRepo = expediente.InformePagoRepo

type CupoRepo = cupo.CupoRepo
type ReferenceRepo = reference.ReferenceRepo
type UserRepo = user.UserRepo

var NewCitizenRepo = citizen.NewCitizenRepo
var NewFamilyRelationRepo = citizen.NewFamilyRelationRepo
var NewExpedienteRepo = expediente.NewExpedienteRepo
var NewLegajoRepo = expediente.NewLegajoRepo
var NewErrorRowRepo = expediente.NewErrorRowRepo
var NewExpedienteHistoryRepo = expediente.NewExpedienteHistoryRepo
var NewReviewHistoryRepo = expediente.NewReviewHistoryRepo
var NewInformePagoRepo = expediente.NewInformePagoRepo
var NewCupoRepo = cupo.NewCupoRepo
var NewReferenceRepo = reference.NewReferenceRepo
var NewUserRepo = user.NewUserRepo
