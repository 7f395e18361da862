/*
Package rmsd superimposes two equally sized point sets and reports the root
mean square deviation of the fit.

Two solvers are provided. Superimpose finds the rotation by alternately
solving single axis rotations about x, y and z until the correction of a full
sweep drops below 0.001 radians. It is the solver the backbone rebuilder has
always used, and the fragment libraries in this module are tuned against it.
SuperimposeSVD implements the closed form Kabsch algorithm described here:
http://cnx.org/content/m11608/latest/

Both return a Fit, which carries the centroids and the rotation so that any
number of additional points can be moved rigidly with the fitted set.
*/
package rmsd
