// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"

	"github.com/Gregoor/matrix-neo/lib/credstore"
	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/messaging"
)

// Client is the live handle the controller drives. *matrixclient.Client
// implements it.
type Client interface {
	OnSyncStateChange(callback func(matrixclient.SyncEvent)) (unsubscribe func())
	OnRoomsChanged(callback func()) (unsubscribe func())
	OnRoomActivity(callback func(ref.RoomID)) (unsubscribe func())
	InitEncryption(ctx context.Context) error
	Start(ctx context.Context) error
	Stop()
	Logout(ctx context.Context) error
	Rooms() []*matrixclient.Room
	Room(roomID ref.RoomID) (*matrixclient.Room, bool)
	SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error)
}

var _ Client = (*matrixclient.Client)(nil)

// Connector builds a new, unstarted client for a descriptor.
type Connector func(descriptor credstore.SessionDescriptor) (Client, error)

// MatrixConnector returns a Connector that builds matrixclient.Clients
// from base. The descriptor supplies the homeserver and the identity;
// every other field of base is used as given.
func MatrixConnector(base matrixclient.Config) Connector {
	return func(descriptor credstore.SessionDescriptor) (Client, error) {
		config := base
		config.HomeserverURL = descriptor.HomeServer
		config.UserID = descriptor.ParsedUserID()
		config.DeviceID = descriptor.DeviceID
		config.AccessToken = descriptor.AccessToken
		client, err := matrixclient.New(config)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
