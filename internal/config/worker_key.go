package config

type WorkerKeyStruct struct {
	PersistResultsQueue   string
	PersistArtifactsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResultsQueue:   "persist_results_queue",
	PersistArtifactsQueue: "persist_artifacts_queue",
}
