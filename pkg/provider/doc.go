// Package provider defines the contract every indelve search provider
// implements and the registry that declares which providers exist.
//
// A provider searches one data domain (files, applications, ...) and knows
// nothing about any other provider. The orchestrator composes them:
//
//	reg := provider.NewRegistry()
//	reg.MustRegister(provider.Definition{
//	    ID:          "calc",
//	    Description: provider.Description{Short: "Calculator", Long: "Evaluates arithmetic."},
//	    New:         func(ctx context.Context) (provider.Provider, error) { return calc.New(calc.Options{}) },
//	})
//
//	ids := reg.List()            // cheap, instantiates nothing
//	descs, err := reg.Descriptions()
//
// # Failure signalling
//
// Providers use two sentinels:
//
//   - [ErrInvalidInput] from Search when a query does not apply to them.
//     The orchestrator counts this as zero results.
//   - [ErrUnavailable] from a Factory when the provider cannot run in this
//     deployment. The orchestrator skips it with a warning.
//
// Any other error is a defect and is propagated unchanged.
package provider
