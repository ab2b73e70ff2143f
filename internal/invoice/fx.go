package invoice

import (
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/render"
	"github.com/smallbiznis/invoicer/internal/invoice/repository"
	"github.com/smallbiznis/invoicer/internal/invoice/sequence"
	"github.com/smallbiznis/invoicer/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		fx.Annotate(
			repository.New,
			fx.As(new(invoicedomain.Repository), new(numbering.NumberStore)),
		),
	),
	sequence.Module,
	numbering.Module,
	fx.Provide(func(s *numbering.Service) invoicedomain.NumberingService { return s }),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
)
