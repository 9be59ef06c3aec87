// Package realtime holds the notification socket handle.
//
// A [Socket] never connects on its own unless [Config.AutoConnect] is set; the
// composition root opens it through [Socket.Gate] once the session is logged in
// and closes it on logout. Dialing and reconnection use a bounded number of
// attempts with a fixed delay between them; after the last attempt the socket
// gives up and stays disconnected until the next Connect.
//
// The wire protocol belongs to the transport behind [Dialer]. This package only
// reads frames and decodes them into [Notification] values.
package realtime
