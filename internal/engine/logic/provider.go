package logic

import "github.com/google/wire"

// ProviderSet is the Wire provider set for the logic package.
var ProviderSet = wire.NewSet(NewUploadLogic, NewReconcileLogic)
