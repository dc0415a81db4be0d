package domain

import "fmt"

type WorkerKind string

const (
	WorkerPreparer WorkerKind = "preparer"
	WorkerCourier  WorkerKind = "courier"
)

func ParseWorkerKind(value string) (WorkerKind, error) {
	switch k := WorkerKind(value); k {
	case WorkerPreparer, WorkerCourier:
		return k, nil
	}
	return "", fmt.Errorf("invalid worker kind %q", value)
}

// WorkerStatus covers both preparers (WAITING, PREPARING, STOPPED) and
// couriers (WAITING, COLLECTING, RETURNING, DELIVERING, STOPPED).
type WorkerStatus string

const (
	WorkerWaiting    WorkerStatus = "WAITING"
	WorkerPreparing  WorkerStatus = "PREPARING"
	WorkerCollecting WorkerStatus = "COLLECTING"
	WorkerReturning  WorkerStatus = "RETURNING"
	WorkerDelivering WorkerStatus = "DELIVERING"
	WorkerStopped    WorkerStatus = "STOPPED"
)
