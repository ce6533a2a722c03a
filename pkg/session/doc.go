/*
Package session serializes each user's turns and exposes the user's variables,
tags and pending input through a Session handle.

A Session is only valid inside Manager.Do. All reads and writes go through the
PersistenceStore; the handle caches what it has already read during the turn.
Turns of different users run in parallel.
*/
package session
