package usecase

import (
	"context"

	"mediagate/internal/services/media/convertapi"
)

// ConvertRemote proxies links from platforms outside the native extraction
// path to the external all-in-one conversion service.
type ConvertRemote struct {
	Client *convertapi.Client
}

func (uc ConvertRemote) Execute(ctx context.Context, sourceURL string) (convertapi.Result, error) {
	if uc.Client == nil || !uc.Client.Configured() {
		return convertapi.Result{}, ErrConversionDisabled
	}
	return uc.Client.Convert(ctx, sourceURL)
}
