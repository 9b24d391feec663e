package config

type WorkerKeyStruct struct {
	PersistResultsQueue   string
	PersistIntegrityQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResultsQueue:   "persist_results_queue",
	PersistIntegrityQueue: "persist_integrity_queue",
}
