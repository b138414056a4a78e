package envvar

const (
	// LitegenEnv is the environment variable used to determine the environment
	LitegenEnv = "LITEGEN_ENV"

	// LitegenModelPath is the environment variable used to supply the model artifact path
	LitegenModelPath = "LITEGEN_MODEL_PATH"

	// LitegenCachePath is the environment variable used to override the download cache directory
	LitegenCachePath = "LITEGEN_CACHE_PATH"

	// LitegenPython is the environment variable used to select the Python interpreter
	LitegenPython = "LITEGEN_PYTHON"

	// LitegenRuntimeVersion is the environment variable used to pin the target TFLite runtime version
	LitegenRuntimeVersion = "LITEGEN_RUNTIME_VERSION"
)
