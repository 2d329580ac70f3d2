// Package resolver finds the running container that backs a compose service.
//
// Containers are located with an ordered list of strategies, the first match wins:
//
//  1. ComposeLabelLookup: containers labelled com.docker.compose.service=<service>,
//     narrowed by com.docker.compose.project when the project is known.
//  2. NamingConvention("-"): <project>-<service>-1, then <project>-<service>.
//  3. NamingConvention("_"): <project>_<service>_1, then <project>_<service>.
//  4. BareName: a container literally named <service>.
//
// Runtime errors from individual strategies are logged and the next strategy is
// tried. Only a failure to launch the runtime at all aborts resolution, since no
// later strategy could succeed either.
package resolver
