package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		newDeps,
		fx.Annotate(bootstrapCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(initCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(planCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(statusCmd, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
