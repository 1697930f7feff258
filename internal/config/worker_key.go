package config

type WorkerKeyStruct struct {
	PersistStudentResultsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistStudentResultsQueue: "persist_student_results_queue",
}
