package service

import (
	"fmt"

	"github.com/mulgadc/mockcloud/mockcloud/services/awsgw"
	"github.com/mulgadc/mockcloud/mockcloud/services/natsd"
)

type Service interface {
	Start() (int, error)
	Stop() error
	Status() (string, error)
	Shutdown() error
	Reload() error
}

func New(btype string, config any) (Service, error) {

	switch btype {
	case "nats":
		return natsd.New(config)

	case "awsgw":
		return awsgw.New(config)

	}

	return nil, fmt.Errorf("unknown service type: %s", btype)
}
