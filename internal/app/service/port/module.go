package port

import "go.uber.org/fx"

// Module exposes the port pool via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
