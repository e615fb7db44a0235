package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSpread        ErrorCode = 102
	ErrCodeInvalidMinimum       ErrorCode = 103
	ErrCodeInvalidPolicy        ErrorCode = 104
	ErrCodeInvalidSize          ErrorCode = 105
	ErrCodeInvalidPrice         ErrorCode = 106
	ErrCodeInvalidCapacity      ErrorCode = 107
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeInvalidPriceField    ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidPricingModel  ErrorCode = 111
	ErrCodeInvalidAllocation    ErrorCode = 112

	// Data/Resource errors (200-299)
	ErrCodeConversionUnavailable ErrorCode = 200
	ErrCodeSourceUnavailable     ErrorCode = 201
	ErrCodeSourceReadFailed      ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound      ErrorCode = 400
	ErrCodeStrategyConfigError   ErrorCode = 401
	ErrCodeStrategyRuntimeError  ErrorCode = 402
	ErrCodeStrategyAlreadyExists ErrorCode = 403
	ErrCodeEventOutOfOrder       ErrorCode = 404
	ErrCodeVersionMismatch       ErrorCode = 405

	// Broker errors (500-599)
	ErrCodeOrderFailed       ErrorCode = 500
	ErrCodePositionNotFound  ErrorCode = 501
	ErrCodeMarketDataMissing ErrorCode = 502

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError  ErrorCode = 600
	ErrCodeBacktestNoStrategies ErrorCode = 601
	ErrCodeBacktestNoDatasource ErrorCode = 602
	ErrCodeBacktestRunFailed    ErrorCode = 603

	// Journal errors (700-799)
	ErrCodeJournalWriteFailed ErrorCode = 700
	ErrCodeJournalClosed      ErrorCode = 701
	ErrCodeJournalReadFailed  ErrorCode = 702

	// Market data download errors (800-899)
	ErrCodeUnsupportedProvider ErrorCode = 800
	ErrCodeInvalidInterval     ErrorCode = 801
	ErrCodeDownloadFailed      ErrorCode = 802
	ErrCodeBarWriteFailed      ErrorCode = 803
)
