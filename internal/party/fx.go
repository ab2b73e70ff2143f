package party

import (
	"github.com/smallbiznis/invoicer/internal/party/repository"
	"github.com/smallbiznis/invoicer/internal/party/service"
	"go.uber.org/fx"
)

var Module = fx.Module("party.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
