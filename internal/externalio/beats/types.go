package beats

import (
	"net"

	ljclient "github.com/elastic/go-lumber/client/v2"
	ljserver "github.com/elastic/go-lumber/server/v2"
)

type OutModule struct {
	sink     *ljclient.SyncClient
	endpoint string
}

type InModule struct {
	source   *ljserver.Server
	listener net.Listener
}
