package mocks

//go:generate mockgen -destination=./mock_transport.go -package=mocks github.com/rxtech-lab/argo-oanda/pkg/stream Transport
