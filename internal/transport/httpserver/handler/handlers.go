package handler

import (
	"github.com/go-playground/validator/v10"

	"lab-catalog-go/internal/domain/catalog"
	"lab-catalog-go/internal/domain/references"
	"lab-catalog-go/internal/domain/resolution"
	"lab-catalog-go/internal/domain/tariffs"
	"lab-catalog-go/pkg/logger"
)

type Handlers struct {
	Tariffs    *tariffs.Service
	References *references.Service
	Catalog    *catalog.Service
	Resolution *resolution.Service
	log        logger.Logger
	validate   *validator.Validate
}

func New(
	tariffService *tariffs.Service,
	referenceService *references.Service,
	catalogService *catalog.Service,
	resolutionService *resolution.Service,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Tariffs:    tariffService,
		References: referenceService,
		Catalog:    catalogService,
		Resolution: resolutionService,
		log:        log,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}
