// Package projects is the REST client behind the project-creation form.
//
// It loads the form's option lists ([Client.Teams], [Client.Managers], or both
// at once with [Client.FormOptions]), validates a [Form] and posts it to
// /projects. A bearer token is attached to every request; an expired token is
// rejected locally with token.ErrExpired before any request is sent, and a 401
// from the backend surfaces as [ErrUnauthorized]. Either one means the caller
// should log the user out.
package projects
