package fact

import (
	"github.com/smallbiznis/promolens/internal/fact/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("fact",
	fx.Provide(repository.Provide),
)
