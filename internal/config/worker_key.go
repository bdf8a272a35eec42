package config

type WorkerKeyStruct struct {
	BackupRetryQueue string
}

var WorkerKey = &WorkerKeyStruct{
	BackupRetryQueue: "backup_retry_queue",
}
