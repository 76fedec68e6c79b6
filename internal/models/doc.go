// Package models defines domain entities and persistence interfaces for the Velvet Metal library sync service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Playlist] : Basic playlist metadata from music services
//   - [PlaylistExport] : Playlist with complete track listing
//   - [Track] : Song metadata with ISRC for cross-service matching
//   - [TrackQuery] : Search parameters for resolving a track on a target service
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [SyncPair] : A linked (source playlist, target playlist) pair kept reconciled over time
//   - [Transfer] : One-shot transfer operations tracking progress and results (append-only history)
//   - [ServiceAuth] : Stored streaming-service credentials per user and service
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
