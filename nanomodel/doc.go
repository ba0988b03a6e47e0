// Package nanomodel maps typed entities to the documents of a hierarchical,
// collection/document addressed database and back.
//
// A model type is declared once, as a *Meta, with the builder or from a
// tagged struct:
//
//	var User = nanomodel.Define("User").Fields(
//	    nanomodel.ID("user_id", nanomodel.UUID()),
//	    nanomodel.Text("name", nanomodel.Required()),
//	    nanomodel.Number("age"),
//	    nanomodel.DateTime("updated", nanomodel.AutoUpdate()),
//	).MustBuild()
//
// Instances are created with Meta.New or Meta.FromDict. Attribute writes go
// through Model.Set, which records the attribute as changed; Model.ToDBDict
// uses those records to produce partial update payloads. Loading a stored
// document with PopulateFromDocDict resets the record.
//
// Keys have the form parent/collection/id. Until an id is known the id
// segment is a placeholder, so an unsaved instance can still be referenced.
//
// Save, Upsert, Update and Refresh delegate to the Manager attached to the
// type (see package manager). The core itself performs no I/O.
package nanomodel
