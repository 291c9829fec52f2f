package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RegisterEndpointMessage]  = (*RegisterEndpointCommand)(nil)
	_ gocmd.Commander[EnableEndpointMessage]    = (*EnableEndpointCommand)(nil)
	_ gocmd.Commander[DisableEndpointMessage]   = (*DisableEndpointCommand)(nil)
	_ gocmd.Commander[EnqueueEventMessage]      = (*EnqueueEventCommand)(nil)
	_ gocmd.Commander[AttemptDeliveryMessage]   = (*AttemptDeliveryCommand)(nil)
	_ gocmd.Commander[RunRetrySweepMessage]     = (*RunRetrySweepCommand)(nil)
	_ gocmd.Commander[RunRetentionSweepMessage] = (*RunRetentionSweepCommand)(nil)
)
