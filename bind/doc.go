// Package bind converts raw request values into typed handler arguments.
//
// Each handler parameter is described by a [Param]. Raw values are pulled
// from the request by the parameter-binder adapter of the parameter's
// [Source] and converted by the converter adapters of the registry:
//
//   - scalars (strings, numbers, booleans, time.Time, uuid.UUID, any type
//     with a registered converter) from the first raw value;
//   - slices and arrays from all values of the name, "name[]" or the
//     indexed forms "name[0]", "name[1]";
//   - maps from "name[key]" or "name.key";
//   - structs ("beans") field by field using dotted paths such as
//     "person.address.city" or "person.tags[0]". A field is named by its
//     `bind:"name"` tag or by its Go name with a lower-case first letter;
//     `bind:"-"` skips it.
//
// A value that fails to convert is recorded as a field error under its
// dotted path and binding goes on with the remaining fields, so one bad
// field never hides the others. Only configuration errors, such as a type
// without a converter, abort binding.
//
// Context values are injected by type: context.Context, *http.Request,
// http.ResponseWriter, url.Values, pathmatch.Vars, *notice.Errors and
// *notice.Notices.
package bind
