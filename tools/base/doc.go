// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package base defines the contract that all assistant tool groups implement.

A tool group wraps one backend (mail search, document review, object
storage, key-value storage, log analytics, or a third-party automation
catalog) and exposes its operations as named, schema-described tools.

# Descriptors

Each operation is described by a ToolDescriptor with named, typed
parameters. Descriptors are created when a group initializes and do not
change until the registry refreshes the group's set:

	desc := base.ToolDescriptor{
	    Name:        "search_messages",
	    Description: "Search the mail backend",
	    Parameters: []base.ParameterSpec{
	        {Name: "query", Type: base.ParamString, Required: true},
	    },
	}

# Invocation

Groups execute operations through a single entry point:

	result, err := group.Invoke(ctx, "search_messages", args)

Results carry ordered content blocks; callers should treat the block order
as significant.

# Thread Safety

All Group implementations must be safe for concurrent use from multiple
goroutines.
*/
package base
